package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document"},
	Short:   "Manage corpus documents",
	Long: `List, delete, or restore documents in the corpus.

Deleted documents stay in the store but their passages are no longer
used as evidence.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [key]",
	Short: "Soft-delete a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsRestoreCmd = &cobra.Command{
	Use:   "restore [key]",
	Short: "Restore a deleted document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsRestore,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsRestoreCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	deleted := 0
	for i := range docs {
		status := ""
		if docs[i].IsDeleted() {
			status = " [deleted]"
			deleted++
		}
		cmd.Printf("  %s%s\n", docs[i].Key, status)
		cmd.Printf("    Name:     %s\n", docs[i].Name)
		if docs[i].Citation != "" {
			cmd.Printf("    Citation: %s\n", docs[i].Citation)
		}
		cmd.Printf("    Passages: %d\n", docs[i].Passages)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents (%d deleted)\n", len(docs), deleted)
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	key := args[0]
	if err := documentService.Delete(cmd.Context(), key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted. Its passages will no longer be used as evidence.\n", key)
	return nil
}

func runDocumentsRestore(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	key := args[0]
	if err := documentService.Restore(cmd.Context(), key); err != nil {
		return fmt.Errorf("failed to restore document: %w", err)
	}

	cmd.Printf("Document %s restored.\n", key)
	return nil
}
