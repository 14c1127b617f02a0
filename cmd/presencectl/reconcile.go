package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/school-of-presence/api/background"
	"github.com/irsalhamdi/school-of-presence/core/booking"
	"github.com/irsalhamdi/school-of-presence/core/checkout"
	"github.com/irsalhamdi/school-of-presence/core/course"
	"github.com/irsalhamdi/school-of-presence/core/purchase"
	"github.com/irsalhamdi/school-of-presence/core/user"
	"github.com/irsalhamdi/school-of-presence/email"
	"github.com/irsalhamdi/school-of-presence/notify"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// reconcileCmd records a payment the gateway took but the site failed to
// store, using the reference the customer was given.
func reconcileCmd(log *logrus.Logger) *cobra.Command {
	var (
		reference string
		userEmail string
		courseID  string
		bookingID string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Verify a payment reference with the gateway and record it",
		Long: `Verify a payment reference with the gateway and record what it paid for.
Pass --user and --course for a course purchase, or --booking for a booking
that is still waiting for its payment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (bookingID == "") == (courseID == "") {
				return errors.New("exactly one of --course or --booking is required")
			}
			if courseID != "" && userEmail == "" {
				return errors.New("--user is required with --course")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			resolver := newResolver(cfg.Pricing, log)
			if err := resolver.Refresh(cmd.Context()); err != nil {
				log.Warn("using the fallback rate")
			}

			gw, err := payment.Open(cfg, &http.Client{Timeout: cfg.Gateway.Timeout})
			if err != nil {
				return err
			}
			verifier := payment.NewVerifier(gw, resolver, decimal.NewFromFloat(cfg.Gateway.Epsilon), cfg.Gateway.Timeout).
				WithQuotes(checkout.Store{DB: db})

			bg := background.New(log)
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Email.Timeout)
				defer cancel()
				if err := bg.Shutdown(ctx); err != nil {
					log.WithError(err).Warn("notifications still pending")
				}
			}()

			mail := email.New(cfg.Email.From, cfg.Email.User, cfg.Email.Password, cfg.Email.Host, cfg.Email.Port, cfg.Email.Timeout)
			notifier := notify.New(mail, bg, notify.Config{
				Admin:    cfg.Email.Admin,
				Attempts: cfg.Email.Attempts,
				Delay:    cfg.Email.Delay,
				Timeout:  cfg.Email.Timeout,
			}, log)

			out := cmd.OutOrStdout()

			if bookingID != "" {
				in := booking.NewIntake(verifier, booking.Store{DB: db}, notifier, resolver, booking.Config{SchedulingURL: cfg.Booking.SchedulingURL}, log)

				b, err := in.ConfirmPayment(cmd.Context(), bookingID, reference)
				if err != nil {
					return fmt.Errorf("reconciling booking: %w", err)
				}
				fmt.Fprintf(out, "booking %s paid with %s\n", b.ID, reference)
				return nil
			}

			u, err := user.FetchByEmail(cmd.Context(), db, userEmail)
			if err != nil {
				return fmt.Errorf("finding user %s: %w", userEmail, err)
			}

			rc := purchase.NewReconciler(verifier, course.Store{DB: db}, purchase.Store{DB: db}, notifier, resolver.Reference(), log)
			rcp, err := rc.Confirm(cmd.Context(), purchase.Buyer{UserID: u.ID, Email: u.Email}, purchase.Confirmation{
				CourseID:         courseID,
				PaymentReference: reference,
			})
			if err != nil {
				return fmt.Errorf("reconciling purchase: %w", err)
			}

			if rcp.Duplicate {
				fmt.Fprintf(out, "purchase %s was already recorded\n", rcp.Purchase.ID)
				return nil
			}
			fmt.Fprintf(out, "purchase %s recorded for %s\n", rcp.Purchase.ID, u.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Payment reference reported by the gateway")
	cmd.Flags().StringVarP(&userEmail, "user", "u", "", "Email of the buyer")
	cmd.Flags().StringVarP(&courseID, "course", "c", "", "Course id")
	cmd.Flags().StringVarP(&bookingID, "booking", "b", "", "Booking id")
	cmd.MarkFlagRequired("reference")

	return cmd
}
