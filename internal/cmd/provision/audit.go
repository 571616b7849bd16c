package provision

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platewire/boardgate/internal/services/access/credential"
)

var auditLimit int

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "maximum number of entries to print")
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit <identifier>",
	Short: "Print recent access entries for an identifier, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	identifier, err := credential.NormalizeIdentifier(args[0])
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.ListAuditEntries(cmd.Context(), identifier, auditLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no access entries")
		return nil
	}
	for _, entry := range entries {
		fmt.Printf("%s  %-10s %s\n", entry.OccurredAt.UTC().Format(time.RFC3339), entry.Method, entry.ID)
	}
	return nil
}
