package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvestad/portsleuth/internal/api"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey hash <key>",
	Short: "API key utilities",
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Hash an API key for the config file",
	Long: `Hash produces the bcrypt hash of an API key. Put the hash in the
api.api_key_hash config field; clients send the plain key in the X-API-Key
header.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := api.HashAPIKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeyHashCmd)
	rootCmd.AddCommand(apikeyCmd)
}
