package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/repository"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func getCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id|reference-code>",
		Short: "Show one payment request",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			var (
				r   *model.PaymentRequest
				err error
			)
			if model.IsReferenceCode(args[0]) {
				r, err = a.requests.GetByReferenceCode(ctx, args[0])
			} else {
				r, err = a.requests.GetByID(ctx, args[0])
			}
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return printRequest(cmd.OutOrStdout(), r, asJSON)
		}),
	}
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}

func listCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's payment requests, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			f := repository.ListFilter{}
			f.Limit, _ = cmd.Flags().GetInt("limit")
			if t, _ := cmd.Flags().GetString("type"); t != "" {
				pt := model.PaymentType(t)
				if !pt.Valid() {
					return fmt.Errorf("unknown payment type %q", t)
				}
				f.Type = &pt
			}
			list, err := a.requests.ListByUser(ctx, args[0], f)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREFERENCE\tTYPE\tSTATUS\tAMOUNT\tCREATED")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.ReferenceCode, r.Type, r.Status,
					formatAmount(r.Amount, r.Currency), r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().StringP("type", "t", "", "Filter by payment type")
	cmd.Flags().IntP("limit", "n", 50, "Maximum results")
	return cmd
}

func transitionCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transition <id> <status>",
		Short: "Move a payment request to a new status",
		Long: `Move a payment request along its lifecycle:

  pending         -> waiting_payment | rejected | expired
  waiting_payment -> validating | rejected | expired
  validating      -> completed | rejected

Payment details given as flags are merged into the request before the move.
Completing a request activates the subscription it pays for.`,
		Args: cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			to := model.RequestStatus(args[1])
			if !to.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}
			change := model.Change{To: to, DetailsPatch: detailsFromFlags(cmd.Flags())}
			if cmd.Flags().Changed("note") {
				note, _ := cmd.Flags().GetString("note")
				change.Note = &note
			}
			if cmd.Flags().Changed("amount") {
				amount, _ := cmd.Flags().GetInt64("amount")
				change.AmountOverride = &amount
			}
			r, err := a.requests.Transition(ctx, args[0], change)
			if err != nil {
				return err
			}
			return printRequest(cmd.OutOrStdout(), r, false)
		}),
	}
	f := cmd.Flags()
	f.String("note", "", "Note recorded in the status history")
	f.Int64("amount", 0, "Override the amount due, in minor units")
	f.String("iban", "", "Bank transfer IBAN")
	f.String("bic", "", "Bank transfer BIC")
	f.String("beneficiary", "", "Bank transfer beneficiary")
	f.String("bank-name", "", "Bank name")
	f.String("paypal-link", "", "PayPal payment link")
	f.String("paypal-email", "", "PayPal account email")
	f.String("gift-type", "", "Gift card kind")
	f.String("gift-code", "", "Gift card code")
	f.String("coupon", "", "Coupon code")
	return cmd
}

// detailsFromFlags returns nil when no detail flag was given.
func detailsFromFlags(f *pflag.FlagSet) *model.PaymentDetails {
	get := func(name string) string {
		v, _ := f.GetString(name)
		return strings.TrimSpace(v)
	}
	var d model.PaymentDetails
	if iban, bic, ben, bank := get("iban"), get("bic"), get("beneficiary"), get("bank-name"); iban+bic+ben+bank != "" {
		d.BankInfo = &model.BankInfo{IBAN: iban, BIC: bic, Beneficiary: ben, BankName: bank}
	}
	if link, email := get("paypal-link"), get("paypal-email"); link+email != "" {
		d.PayPal = &model.PayPalInfo{Link: link, Email: email}
	}
	if kind, code := get("gift-type"), get("gift-code"); kind+code != "" {
		d.GiftCard = &model.GiftCardInfo{Type: kind, Code: code}
	}
	if code := get("coupon"); code != "" {
		d.Coupon = &model.CouponInfo{Code: code}
	}
	if d.BankInfo == nil && d.PayPal == nil && d.GiftCard == nil && d.Coupon == nil {
		return nil
	}
	return &d
}

func activateCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Re-run subscription activation for a completed request",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			ok, err := a.subs.ActivateByRequestID(ctx, args[0])
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(cmd.OutOrStdout(), "subscription activated for %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was already activated, nothing changed\n", args[0])
			}
			return nil
		}),
	}
}

func sweepCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire requests idle longer than payments.request_ttl",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			cutoff := time.Now().UTC().Add(-a.cfg.Payments.RequestTTL)
			total := 0
			for {
				n, err := a.requests.ExpireStale(ctx, cutoff, a.cfg.Scheduler.ExpiryBatch)
				total += n
				if err != nil {
					return err
				}
				if n < a.cfg.Scheduler.ExpiryBatch {
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d request(s) idle since before %s\n", total, cutoff.Format(time.RFC3339))
			return nil
		}),
	}
}

func printRequest(w io.Writer, r *model.PaymentRequest, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	fmt.Fprintf(tw, "Reference\t%s\n", r.ReferenceCode)
	fmt.Fprintf(tw, "User\t%s %s\n", r.UserID, r.UserEmail)
	fmt.Fprintf(tw, "Plan\t%s (%s)\n", r.Plan.Name, r.Plan.ID)
	fmt.Fprintf(tw, "Type\t%s\n", r.Type)
	fmt.Fprintf(tw, "Amount\t%s\n", formatAmount(r.Amount, r.Currency))
	fmt.Fprintf(tw, "Status\t%s (%s)\n", r.Status, r.Status.Label())
	if next := model.ValidTransitionsFrom(r.Status); len(next) > 0 {
		fmt.Fprintf(tw, "Next\t%s\n", joinStatuses(next))
	}
	if d, err := json.Marshal(r.PaymentDetails); err == nil && string(d) != "{}" {
		fmt.Fprintf(tw, "Details\t%s\n", d)
	}
	if r.AdminNote != "" {
		fmt.Fprintf(tw, "Note\t%s\n", r.AdminNote)
	}
	fmt.Fprintf(tw, "Version\t%d\n", r.Version)
	for _, u := range r.Notifications.StatusUpdates {
		line := fmt.Sprintf("%s  %s", u.Timestamp.Format(time.RFC3339), u.Status)
		if u.Note != "" {
			line += "  " + u.Note
		}
		fmt.Fprintf(tw, "History\t%s\n", line)
	}
	return tw.Flush()
}

func joinStatuses(ss []model.RequestStatus) string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}

func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
}
