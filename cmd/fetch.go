package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"site-backup/internal/logging"
	"site-backup/internal/transfer"
)

// defaultRemotePath is used when neither the environment nor the operator
// provides a remote directory
const defaultRemotePath = "/var/backups/sites"

// createFetchCommand creates the fetch subcommand, which pulls previously
// produced backups from a remote host into the current directory
func createFetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Pull backups from a remote host into the current directory",
		Long: `Fetch connects to a remote host over SSH and recursively copies the
contents of its backup directory into the current local directory.

The remote directory defaults to the value of the SITE_BACKUP_REMOTE_PATH
environment variable, falling back to ` + defaultRemotePath + `.`,
		RunE: runFetch,
	}
}

// runFetch prompts for the endpoint and runs the transfer
func runFetch(cmd *cobra.Command, args []string) error {
	logger := logging.NewDefaultLogger()
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Remote endpoint (user@host): ")
	endpointToken, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read endpoint: %w", err)
	}

	remotePath := viper.GetString("remote_path")
	if remotePath == "" {
		remotePath = defaultRemotePath
	}

	fmt.Printf("Remote path [%s]: ", remotePath)
	pathInput, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read remote path: %w", err)
	}
	if trimmed := strings.TrimSpace(pathInput); trimmed != "" {
		remotePath = trimmed
	}

	endpoint, err := transfer.ParseEndpoint(endpointToken, remotePath)
	if err != nil {
		return err
	}

	fmt.Printf("Password for %s@%s: ", endpoint.User, endpoint.Host)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	localDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	fetcher := transfer.NewFetcher(logger)
	if err := fetcher.Fetch(endpoint, localDir, string(password)); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	fmt.Printf("Fetched backups from %s:%s into %s\n", endpoint.Host, endpoint.RemoteDir, localDir)
	return nil
}

func init() {
	rootCmd.AddCommand(createFetchCommand())
}
