package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"billing-engine/internal/app"
	"billing-engine/internal/core"
)

const usage = "Available: totals, products, create-product, stock, low-stock, invoices [status], quotes [status], " +
	"create-invoice, create-quote, delete-invoice <id>, delete-quote <id>"

// Run executes a one-shot CLI command.
// args is os.Args[1:]; the first element is the subcommand name. Commands
// that take a document read JSON from in.
func Run(ctx context.Context, svc app.ApplicationService, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	switch args[0] {
	case "totals", "preview":
		var req app.PreviewRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.PreviewTotals(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to compute totals: %w", err)
		}
		printTotals(out, result)

	case "products":
		result, err := svc.ListProducts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		printProducts(out, result.Products)

	case "create-product":
		var req app.ProductRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.CreateProduct(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		fmt.Fprintf(out, "Created product %s (%s).\n", result.Product.ID, result.Product.Name)

	case "stock":
		result, err := svc.GetStockLevels(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stock levels: %w", err)
		}
		printStock(out, "STOCK LEVELS", result)

	case "low-stock", "low":
		result, err := svc.GetLowStock(ctx)
		if err != nil {
			return fmt.Errorf("failed to get low stock: %w", err)
		}
		printStock(out, "LOW STOCK", result)

	case "invoices", "quotes":
		kind := core.KindInvoice
		if args[0] == "quotes" {
			kind = core.KindQuote
		}
		status := ""
		if len(args) > 1 {
			status = args[1]
		}
		result, err := svc.ListDocuments(ctx, kind, status)
		if err != nil {
			return fmt.Errorf("failed to list %ss: %w", kind, err)
		}
		printDocuments(out, result)

	case "create-invoice", "create-quote":
		kind := core.KindInvoice
		if args[0] == "create-quote" {
			kind = core.KindQuote
		}
		var req app.DocumentRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		result, err := svc.CreateDocument(ctx, kind, req)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", kind, err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Document)

	case "delete-invoice", "delete-quote":
		kind := core.KindInvoice
		if args[0] == "delete-quote" {
			kind = core.KindQuote
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: app %s <id>", args[0])
		}
		if err := svc.DeleteDocument(ctx, kind, args[1]); err != nil {
			return fmt.Errorf("failed to delete %s: %w", kind, err)
		}
		fmt.Fprintf(out, "Deleted %s %s.\n", kind, args[1])

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func printTotals(out io.Writer, result *app.TotalsResult) {
	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintf(out, "  %-20s %15s\n", "Sub-total", result.Totals.SubTotal.StringFixed(3))
	fmt.Fprintf(out, "  %-20s %15s\n", "Tax ("+result.TaxRate.Shift(2).String()+"%)", result.Totals.TaxAmount.StringFixed(3))
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "  %-20s %15s %s\n", "Total", result.Totals.TotalAmount.StringFixed(3), result.Currency)
	fmt.Fprintln(out, strings.Repeat("=", 40))
}

func printProducts(out io.Writer, products []core.Product) {
	fmt.Fprintf(out, "  %-36s %-24s %12s %12s\n", "ID", "NAME", "PRICE", "STOCK")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, p := range products {
		fmt.Fprintf(out, "  %-36s %-24s %12s %12s\n", p.ID, p.Name, p.SalePrice.StringFixed(3), p.StockOf())
	}
}

func printStock(out io.Writer, title string, result *app.StockResult) {
	fmt.Fprintf(out, "  %s (threshold %s)\n", title, result.Threshold)
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, l := range result.Levels {
		stock := l.Stock.String()
		if l.Unlimited {
			stock = "unlimited"
		}
		flag := ""
		if l.LowStock {
			flag = "LOW"
		}
		fmt.Fprintf(out, "  %-36s %-16s %10s %s\n", l.ProductID, l.Name, stock, flag)
	}
}

func printDocuments(out io.Writer, result *app.DocumentListResult) {
	fmt.Fprintf(out, "  %-36s %-12s %-10s %-10s %15s\n", "ID", "CUSTOMER", "DATE", "STATUS", "TOTAL")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, d := range result.Documents {
		fmt.Fprintf(out, "  %-36s %-12s %-10s %-10s %15s\n",
			d.ID, d.CustomerID, d.Date.Format("2006-01-02"), d.Status, d.TotalAmount.StringFixed(3))
	}
	fmt.Fprintf(out, "  %d %s(s), amounts in %s\n", len(result.Documents), result.Kind, result.Currency)
}
