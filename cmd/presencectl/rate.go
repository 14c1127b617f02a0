package main

import (
	"fmt"

	"github.com/irsalhamdi/school-of-presence/config"
	"github.com/irsalhamdi/school-of-presence/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newResolver(cfg config.Pricing, log logrus.FieldLogger) *pricing.Resolver {
	return pricing.New(pricing.Config{
		Reference:    cfg.ReferenceCurrency,
		Settlement:   cfg.SettlementCurrency,
		FallbackRate: decimal.NewFromFloat(cfg.FallbackRate),
		URL:          cfg.RateURL,
		Timeout:      cfg.Timeout,
	}, log)
}

func rateCmd(log logrus.FieldLogger) *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Fetch the current exchange rate and convert an amount with it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("amount %q: %w", amount, err)
			}

			r := newResolver(cfg.Pricing, log)
			if err := r.Refresh(cmd.Context()); err != nil {
				log.Warn("using the fallback rate")
			}

			q := r.Quote()
			fmt.Fprintf(cmd.OutOrStdout(), "1 %s = %s %s (fallback: %t)\n", q.Reference, q.Rate, q.Settlement, q.Fallback)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n", amt.StringFixed(2), q.Reference, r.ToSettlement(amt).StringFixed(2), q.Settlement)
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "99", "Amount in the reference currency")
	return cmd
}
