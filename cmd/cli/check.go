package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvestad/portsleuth/internal/netutil"
	"github.com/nvestad/portsleuth/internal/scanning"
)

var checkCmd = &cobra.Command{
	Use:     "check <target> <port>",
	Short:   "Probe a single TCP port",
	Example: "  portsleuth check 192.168.1.10 443",
	Args:    cobra.ExactArgs(2),
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	target := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q", args[1])
	}
	if err := scanning.ValidatePort(port); err != nil {
		return err
	}
	if err := netutil.ValidateTarget(target); err != nil {
		return err
	}

	resolver := netutil.NewResolver(appConfig.Scanning.Nameserver)
	resolved, err := resolver.Resolve(cmd.Context(), target)
	if err != nil {
		return err
	}

	cfg, err := scanning.NewScanConfig(resolved,
		scanning.CustomListMode{List: []int{port}},
		scanning.WithTimeout(appConfig.Scanning.Timeout))
	if err != nil {
		return err
	}
	scanner, err := scanning.NewScanner(cfg)
	if err != nil {
		return err
	}

	result, err := scanner.ScanPort(context.Background(), port)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.String())
	return nil
}
