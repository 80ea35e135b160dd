package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/rates"
)

func migrateCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.storage.Migrate(ctx); err != nil {
				return err
			}
			rt.logger.Info("schema up to date")
			return nil
		},
	}
}

func apiKeyCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "API key utilities",
	}

	var (
		storeID int64
		status  string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API key for a store and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(status)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			mgr, cleanup := rt.storeManager()
			defer cleanup()

			key, err := mgr.IssueAPIKey(ctx, storeID, st)
			if err != nil {
				return fmt.Errorf("issue api key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for store %d (id %d, %s):\n%s\n", key.StoreID, key.ID, key.Status, key.Key)
			return nil
		},
	}
	generate.Flags().Int64Var(&storeID, "store", 0, "store id (required)")
	generate.Flags().StringVar(&status, "status", string(model.StatusActive), model.StatusChoices())
	_ = generate.MarkFlagRequired("store")

	var (
		keyID     int64
		keyStatus string
	)
	setStatus := &cobra.Command{
		Use:   "status",
		Short: "Change the status of an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(keyStatus)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			mgr, cleanup := rt.storeManager()
			defer cleanup()
			return mgr.SetAPIKeyStatus(ctx, keyID, st)
		},
	}
	setStatus.Flags().Int64Var(&keyID, "id", 0, "api key id (required)")
	setStatus.Flags().StringVar(&keyStatus, "status", "", model.StatusChoices())
	_ = setStatus.MarkFlagRequired("id")
	_ = setStatus.MarkFlagRequired("status")

	cmd.AddCommand(generate, setStatus)
	return cmd
}

func storeCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store utilities (create/list/status)",
	}

	var in model.Store
	var status string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a store under a public hostname",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(status)
			if err != nil {
				return err
			}
			in.Status = st

			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			mgr, cleanup := rt.storeManager()
			defer cleanup()

			created, err := mgr.CreateStore(ctx, in)
			if err != nil {
				return fmt.Errorf("create store: %w", err)
			}
			return printJSON(cmd, created)
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "store name (required)")
	create.Flags().StringVar(&in.ShopName, "shop-name", "", "display name, defaults to --name")
	create.Flags().StringVar(&in.ShopDomain, "domain", "", "public hostname, e.g. www.acme.example.com (required)")
	create.Flags().StringVar(&in.Email, "email", "", "contact email")
	create.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	create.Flags().StringVar(&in.Country, "country", "", "country")
	create.Flags().StringVar(&status, "status", string(model.StatusActive), model.StatusChoices())
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("domain")

	var filter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			var st model.Status
			if filter != "" {
				var err error
				if st, err = model.ParseStatus(filter); err != nil {
					return err
				}
			}
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			stores, err := rt.storage.ListStores(ctx, st)
			if err != nil {
				return err
			}
			return printJSON(cmd, stores)
		},
	}
	list.Flags().StringVar(&filter, "status", "", "only stores with this status: "+model.StatusChoices())

	var (
		storeID     int64
		storeStatus string
	)
	setStatus := &cobra.Command{
		Use:   "status",
		Short: "Change the status of a store",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(storeStatus)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			mgr, cleanup := rt.storeManager()
			defer cleanup()
			return mgr.SetStoreStatus(ctx, storeID, st)
		},
	}
	setStatus.Flags().Int64Var(&storeID, "id", 0, "store id (required)")
	setStatus.Flags().StringVar(&storeStatus, "status", "", model.StatusChoices())
	_ = setStatus.MarkFlagRequired("id")
	_ = setStatus.MarkFlagRequired("status")

	cmd.AddCommand(create, list, setStatus)
	return cmd
}

func userCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Back-office user utilities",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a back-office user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("STOREFRONT_ADMIN_PASSWORD")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			u, err := rt.storage.CreateUser(ctx, model.User{
				Name:         name,
				Email:        strings.ToLower(strings.TrimSpace(email)),
				PasswordHash: hash,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			rt.logger.Info("user created", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "login email (required)")
	create.Flags().StringVar(&password, "password", "", "password, or set STOREFRONT_ADMIN_PASSWORD")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func ratesCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Currency and metal rate utilities",
	}

	var kind string
	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch rates now, bypassing the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			k := rates.Kind(kind)
			if k != rates.KindCurrency && k != rates.KindMetal {
				return fmt.Errorf("%w: %q", rates.ErrUnknownKind, kind)
			}
			ctx := cmd.Context()
			rt, err := open(ctx, load)
			if err != nil {
				return err
			}
			defer rt.Close()

			httpClient := rates.NewHTTPClient(rt.cfg.Rates.HTTPTimeout)
			runner := &rates.Runner{
				Currency:     &rates.CurrencyClient{BaseURL: rt.cfg.Rates.CurrencyURL, APIKey: rt.cfg.Rates.CurrencyAPIKey, HTTP: httpClient},
				Metal:        &rates.MetalClient{BaseURL: rt.cfg.Rates.MetalURL, APIKey: rt.cfg.Rates.MetalAPIKey, HTTP: httpClient},
				CurrencyBase: rt.cfg.Rates.CurrencyBase,
				Store:        rt.storage,
				Logger:       rt.logger,
			}
			return runner.Run(ctx, rates.NewJob(k))
		},
	}
	refresh.Flags().StringVar(&kind, "kind", string(rates.KindCurrency), "currency or metal")

	cmd.AddCommand(refresh)
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

