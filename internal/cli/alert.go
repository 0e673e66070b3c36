package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/storage"
	"github.com/spf13/cobra"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Manage price alerts",
}

var alertAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a price alert",
	RunE:  runAlertAdd,
}

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all alerts",
	RunE:  runAlertList,
}

var alertDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertDelete,
}

var alertSetPriceCmd = &cobra.Command{
	Use:   "set-price <id> <price>",
	Short: "Change an alert's threshold price",
	Args:  cobra.ExactArgs(2),
	RunE:  runAlertSetPrice,
}

var alertImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import alerts from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertImport,
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertAddCmd, alertListCmd, alertDeleteCmd, alertSetPriceCmd, alertImportCmd)

	alertAddCmd.Flags().StringP("from", "f", "", "Origin airport code")
	alertAddCmd.Flags().StringP("to", "t", "", "Destination airport code")
	alertAddCmd.Flags().StringP("date", "d", "", "Travel date (YYYY-MM-DD)")
	alertAddCmd.Flags().StringP("kind", "k", "single", "Alert kind (single, day)")
	alertAddCmd.Flags().StringP("flight", "n", "", "Flight number (required for single)")
	alertAddCmd.Flags().IntP("price", "p", 0, "Price paid, in whole dollars")
	alertAddCmd.Flags().String("email", "", "Email address to notify")
	alertAddCmd.Flags().String("phone", "", "Phone number to text")
	_ = alertAddCmd.MarkFlagRequired("from")
	_ = alertAddCmd.MarkFlagRequired("to")
	_ = alertAddCmd.MarkFlagRequired("date")
	_ = alertAddCmd.MarkFlagRequired("price")
}

func runAlertAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	dateStr, _ := cmd.Flags().GetString("date")
	kindStr, _ := cmd.Flags().GetString("kind")
	flight, _ := cmd.Flags().GetString("flight")
	price, _ := cmd.Flags().GetInt("price")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")

	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", dateStr, err)
	}
	kind, err := model.ParseAlertKind(kindStr)
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	alert := &model.Alert{
		FlightNumber: flight,
		Origin:       from,
		Destination:  to,
		Date:         date,
		Kind:         kind,
		Price:        price,
		Email:        email,
		Phone:        phone,
	}
	if err := store.CreateAlert(cmd.Context(), alert); err != nil {
		return fmt.Errorf("create alert: %w", err)
	}

	fmt.Printf("Alert created:\n")
	fmt.Printf("  ID:     %s\n", alert.ID)
	fmt.Printf("  Kind:   %s\n", alert.Kind)
	fmt.Printf("  Flight: %s\n", alert.Label())
	fmt.Printf("  Price:  %s\n", model.FormatPrice(alert.Price))
	if !alert.HasContact() {
		fmt.Println("  Note:   no email or phone set, drops will only reach the webhook")
	}
	return nil
}

func runAlertList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	alerts, err := store.ListAlerts(cmd.Context())
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Println("No alerts. Use 'fareguard alert add' to create one.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tDATE\tKIND\tFLIGHT\tROUTE\tPRICE\tLATEST\tCONTACT\n")
	for _, a := range alerts {
		latest := "-"
		if a.LatestPrice > 0 {
			latest = model.FormatPrice(a.LatestPrice)
		}
		date := a.FormattedDate()
		if a.Expired(now) {
			date += " [EXPIRED]"
		}
		flight := a.FlightNumber
		if flight == "" {
			flight = "any"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s → %s\t%s\t%s\t%s\n",
			a.ID, date, a.Kind, flight, a.Origin, a.Destination,
			model.FormatPrice(a.Price), latest, contact(a),
		)
	}
	w.Flush()

	return nil
}

func contact(a model.Alert) string {
	switch {
	case a.Email != "" && a.Phone != "":
		return a.Email + ", " + a.Phone
	case a.Email != "":
		return a.Email
	case a.Phone != "":
		return a.Phone
	}
	return "-"
}

func runAlertDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteAlert(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	fmt.Printf("Alert %s deleted\n", args[0])
	return nil
}

func runAlertSetPrice(cmd *cobra.Command, args []string) error {
	price, err := strconv.Atoi(args[1])
	if err != nil || price <= 0 {
		return fmt.Errorf("price must be a positive whole dollar amount, got %q", args[1])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpdatePrice(cmd.Context(), args[0], price); err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	fmt.Printf("Alert %s threshold set to %s\n", args[0], model.FormatPrice(price))
	return nil
}

func runAlertImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	alerts, err := storage.LoadSeedFile(args[0])
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := storage.Import(cmd.Context(), store, alerts)
	if err != nil {
		return fmt.Errorf("import alerts (%d created before failure): %w", n, err)
	}
	fmt.Printf("Imported %d alerts from %s\n", n, args[0])
	return nil
}
