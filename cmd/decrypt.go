// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 j9brown

package cmd

import (
	"os"

	"github.com/j9brown/node-zwave-pe653/pkg/iboot"
	"github.com/spf13/cobra"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file>",
	Short: "Decrypt an .iboot archive and write the plaintext to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecrypt,
}

func init() {
	rootCmd.AddCommand(decryptCmd)
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	plaintext, err := iboot.DecryptFile(args[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(plaintext)
	return err
}
