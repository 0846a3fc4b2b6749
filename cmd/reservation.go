package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"cabin-manager/core/reconcile"
	"cabin-manager/feature/reservation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	bookReq   reservation.BookRequest
	bookTotal float64
	modifyReq modifyFlags
	listJSON  bool
	upcomingN int
)

// modifyFlags holds raw flag values; only flags the user set are applied.
type modifyFlags struct {
	guest, cabin, checkIn, checkOut, phone, notes string
	nights                                        int
	total, paid                                   float64
}

var reservationCmd = &cobra.Command{
	Use:     "reservation",
	Aliases: []string{"res"},
	Short:   "Manage manual reservations",
}

var reservationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Book a cabin",
	Long: `Book a cabin for a guest. The stay is given by --check-out or --nights.

Example:
  reservation add --guest "Ana García" --cabin Colibri --check-in 2025-07-01 --nights 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			if cmd.Flags().Changed("total") {
				bookReq.Total = &bookTotal
			}
			r, err := app.reservations.Book(ctx, bookReq)
			if err != nil {
				return describeConflict(app.logger, err)
			}
			printReservations(os.Stdout, []reconcile.Reservation{*r})
			return nil
		})
	},
}

var reservationModifyCmd = &cobra.Command{
	Use:   "modify <id-or-guest>",
	Short: "Change a reservation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var req reservation.ModifyRequest
		if f.Changed("guest") {
			req.GuestName = &modifyReq.guest
		}
		if f.Changed("cabin") {
			req.Cabin = &modifyReq.cabin
		}
		if f.Changed("check-in") {
			req.CheckIn = &modifyReq.checkIn
		}
		if f.Changed("check-out") {
			req.CheckOut = &modifyReq.checkOut
		}
		if f.Changed("nights") {
			req.Nights = &modifyReq.nights
		}
		if f.Changed("total") {
			req.Total = &modifyReq.total
		}
		if f.Changed("paid") {
			req.Paid = &modifyReq.paid
		}
		if f.Changed("phone") {
			req.Phone = &modifyReq.phone
		}
		if f.Changed("notes") {
			req.Notes = &modifyReq.notes
		}

		return withApp(func(ctx context.Context, app *application) error {
			r, err := app.reservations.Modify(ctx, args[0], req)
			if err != nil {
				return describeConflict(app.logger, err)
			}
			printReservations(os.Stdout, []reconcile.Reservation{*r})
			return nil
		})
	},
}

var reservationDeleteCmd = &cobra.Command{
	Use:   "delete <id-or-guest>",
	Short: "Cancel a reservation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			r, err := app.reservations.Delete(ctx, args[0])
			if err != nil {
				return err
			}
			app.logger.Info("Reservation deleted",
				zap.String("id", r.ID),
				zap.String("guest", r.GuestName),
				zap.String("cabin", r.Resource),
			)
			return nil
		})
	},
}

var reservationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every reservation by check-in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			list, err := app.reservations.List(ctx)
			if err != nil {
				return err
			}
			return output(list)
		})
	},
}

var reservationUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show the next check-ins",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			list, err := app.reservations.Upcoming(ctx, upcomingN)
			if err != nil {
				return err
			}
			return output(list)
		})
	},
}

func init() {
	af := reservationAddCmd.Flags()
	af.StringVar(&bookReq.GuestName, "guest", "", "Guest name")
	af.StringVar(&bookReq.Cabin, "cabin", "", "Cabin name")
	af.StringVar(&bookReq.CheckIn, "check-in", "", "Check-in date (YYYY-MM-DD)")
	af.StringVar(&bookReq.CheckOut, "check-out", "", "Check-out date (YYYY-MM-DD)")
	af.IntVar(&bookReq.Nights, "nights", 0, "Nights, when --check-out is not given")
	af.Float64Var(&bookTotal, "total", 0, "Total price (default nights x nightly rate)")
	af.Float64Var(&bookReq.Paid, "paid", 0, "Amount already paid")
	af.StringVar(&bookReq.Phone, "phone", "", "Guest phone")
	af.StringVar(&bookReq.Notes, "notes", "", "Free-form notes")
	_ = reservationAddCmd.MarkFlagRequired("guest")
	_ = reservationAddCmd.MarkFlagRequired("cabin")
	_ = reservationAddCmd.MarkFlagRequired("check-in")

	mf := reservationModifyCmd.Flags()
	mf.StringVar(&modifyReq.guest, "guest", "", "New guest name")
	mf.StringVar(&modifyReq.cabin, "cabin", "", "Move to another cabin")
	mf.StringVar(&modifyReq.checkIn, "check-in", "", "New check-in; alone it keeps the stay length")
	mf.StringVar(&modifyReq.checkOut, "check-out", "", "New check-out")
	mf.IntVar(&modifyReq.nights, "nights", 0, "New stay length")
	mf.Float64Var(&modifyReq.total, "total", 0, "New total price")
	mf.Float64Var(&modifyReq.paid, "paid", 0, "New paid amount")
	mf.StringVar(&modifyReq.phone, "phone", "", "New phone")
	mf.StringVar(&modifyReq.notes, "notes", "", "New notes")

	reservationListCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")
	reservationUpcomingCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")
	reservationUpcomingCmd.Flags().IntVarP(&upcomingN, "limit", "n", 0, "How many to show (default from config)")

	reservationCmd.AddCommand(reservationAddCmd, reservationModifyCmd, reservationDeleteCmd, reservationListCmd, reservationUpcomingCmd)
	RootCmd.AddCommand(reservationCmd)
}

// withApp bootstraps the services, runs fn and waits for background publishing.
func withApp(fn func(ctx context.Context, app *application) error) error {
	ctx := context.Background()
	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()
	return fn(ctx, app)
}

func describeConflict(l *zap.Logger, err error) error {
	var ce *reservation.ConflictError
	if errors.As(err, &ce) {
		for _, c := range ce.Conflicts {
			l.Warn("Overlapping reservation",
				zap.String("id", c.ID),
				zap.String("guest", c.GuestName),
				zap.String("check_in", c.CheckIn.String()),
				zap.String("check_out", c.CheckOut.String()),
			)
		}
	}
	return err
}

func output(list []reconcile.Reservation) error {
	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	printReservations(os.Stdout, list)
	return nil
}

func printReservations(w io.Writer, list []reconcile.Reservation) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGUEST\tCABIN\tCHECK-IN\tCHECK-OUT\tNIGHTS\tTOTAL\tPAID\tSOURCE")
	for _, r := range list {
		in, out := r.CheckIn.String(), r.CheckOut.String()
		if r.Malformed() {
			in, out = "!"+r.Defect.RawCheckIn, "!"+r.Defect.RawCheckOut
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\t%s\n",
			r.ID, r.GuestName, r.Resource, in, out, r.Nights, r.Pricing.Total, r.Pricing.Paid, r.Source)
	}
	_ = tw.Flush()
}
