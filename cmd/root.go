package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the tripbooker application
var rootCmd = &cobra.Command{
	Use:   "tripbooker",
	Short: "Trip booking MCP server behind a Google OAuth proxy",
	Long: `tripbooker serves trip booking tools to AI assistants over the Model
Context Protocol.

MCP clients authenticate through a built-in OAuth 2.0 authorization server
that proxies sign-in to Google. Google access tokens are handed to the client
unchanged and validated on every call to the /mcp endpoint.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tripbooker version %s\n" .Version}}`)

	// Without a subcommand the server is started
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
