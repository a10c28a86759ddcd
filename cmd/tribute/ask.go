package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/xxxsen/tribute/internal/client"
	"github.com/xxxsen/tribute/internal/model"
)

func newAskCmd() *cobra.Command {
	var (
		server   string
		token    string
		params   client.StartParams
		docType  string
		document string
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "stream a document update from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("token", token); err != nil {
				return err
			}
			if document != "" {
				raw, err := os.ReadFile(document)
				if err != nil {
					return fmt.Errorf("read document: %w", err)
				}
				params.Document = string(raw)
			}
			params.DocType = model.DocType(docType)
			out := cmd.OutOrStdout()

			s := client.New(client.Config{BaseURL: server, Token: token})
			printed := 0
			s.OnUpdate = func(assistant, doc string) {
				if len(doc) < printed {
					fmt.Fprint(out, "\n--- restart ---\n")
					printed = 0
				}
				fmt.Fprint(out, doc[printed:])
				printed = len(doc)
			}
			s.OnDone = func(message, doc string) {
				fmt.Fprintf(out, "\n\n%s\n", message)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if !s.Start(ctx, params) {
				return fmt.Errorf("stream already running")
			}
			go func() {
				<-ctx.Done()
				s.Stop()
			}()
			s.Wait()
			if state := s.Snapshot(); state.Error != "" {
				return fmt.Errorf("stream error: %s", state.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "server base url")
	cmd.Flags().StringVar(&token, "token", "", "access token")
	cmd.Flags().StringVar(&params.Prompt, "prompt", "", "instruction for the assistant")
	cmd.Flags().StringVar(&document, "document", "", "file with the current document text")
	cmd.Flags().StringVar(&params.EntryID, "entry", "", "entry id")
	cmd.Flags().StringVar(&docType, "doc-type", "", "obituary or eulogy")
	cmd.Flags().StringVar(&params.Mode, "mode", "", "create, update or suggestions; empty uses the structured stream")
	cmd.Flags().StringVar(&params.Title, "title", "", "document title for create")
	cmd.Flags().StringVar(&params.Context, "context", "", "context for create")
	return cmd
}
