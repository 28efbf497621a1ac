// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "zapgate",
	Short: "ZapGate - An S3-compatible object storage gateway",
	Long: `ZapGate serves an S3-compatible API over a local filesystem.
It authenticates requests with AWS Signature Version 4 and keeps objects,
their metadata, and in-progress multipart uploads under a single storage root.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
