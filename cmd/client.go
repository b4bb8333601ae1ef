package cmd

import (
	"fmt"

	"github.com/go-authgate/consentgate/internal/config"
	"github.com/go-authgate/consentgate/internal/models"
	"github.com/go-authgate/consentgate/internal/services"

	"github.com/spf13/cobra"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage registered OAuth clients",
	}
	cmd.AddCommand(newClientCreateCmd(), newClientDeleteCmd())
	return cmd
}

func newClientCreateCmd() *cobra.Command {
	var req services.CreateClientRequest
	var allowed string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a client and print its credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openStore(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer db.Close()

			req.AllowedUserType = models.AllowedUserType(allowed)
			client, err := services.NewClientRegistry(db, nil, 0).CreateClient(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "client_id:     %s\n", client.ClientID)
			fmt.Fprintf(cmd.OutOrStdout(), "client_secret: %s\n", client.ClientSecret)
			fmt.Fprintf(cmd.OutOrStdout(), "scope:         %s\n", client.Scope)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ServiceName, "name", "", "service name shown on the consent page")
	f.StringVar(&req.ServiceDomain, "domain", "", "service domain")
	f.StringVar(&req.Scope, "scope", "", "comma separated scopes the client may request")
	f.StringSliceVar(&req.RedirectURIs, "redirect-uri", nil, "allowed redirect uri (repeatable)")
	f.StringVar(&allowed, "allowed-user-type", string(models.AllowAll), "all, student or teacher")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("redirect-uri")
	return cmd
}

func newClientDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CLIENT_ID",
		Short: "Delete a client; its consent history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := services.NewClientRegistry(db, nil, 0).DeleteClient(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "client %s deleted\n", args[0])
			return nil
		},
	}
}
