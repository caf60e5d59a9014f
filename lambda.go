package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/cartoonbot/internal/handler"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run the cartoonize operation as an AWS Lambda function",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, injector, err := setup(cmd)
		if err != nil {
			return err
		}
		h, err := do.Invoke[*handler.Handler](injector)
		if err != nil {
			return err
		}
		lambda.StartWithOptions(h.Cartoonize, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
			_ = injector.Shutdown()
		}))
		return nil
	},
}
