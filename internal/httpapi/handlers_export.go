package httpapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/venueworks/playpass/internal/export"
	"github.com/venueworks/playpass/pkg/wallet"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatPDF  = "pdf"
)

func exportFormat(ctx *gin.Context) (string, bool) {
	format := strings.ToLower(ctx.DefaultQuery("format", formatJSON))
	switch format {
	case formatJSON, formatCSV, formatPDF:
		return format, true
	}
	respondBadRequest(ctx, "format must be json, csv, or pdf")
	return "", false
}

// writeExport renders the table in the requested format and sets the
// attachment headers downloads expect.
func (server *Server) writeExport(ctx *gin.Context, format string, prefix string, table export.Table) {
	filename := export.Filename(prefix, format, server.nowFn())
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	var buffer bytes.Buffer
	switch format {
	case formatCSV:
		if err := export.CSV(&buffer, table); err != nil {
			server.respondError(ctx, err)
			return
		}
		ctx.Data(http.StatusOK, "text/csv", buffer.Bytes())
	case formatPDF:
		if err := export.PDF(&buffer, table); err != nil {
			server.respondError(ctx, err)
			return
		}
		ctx.Data(http.StatusOK, "application/pdf", buffer.Bytes())
	}
}

func (server *Server) handleExportCustomers(ctx *gin.Context) {
	format, ok := exportFormat(ctx)
	if !ok {
		return
	}
	customers, err := server.wallets.Customers(ctx.Request.Context(), wallet.CustomerFilter{
		Search: strings.TrimSpace(ctx.Query("search")),
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if format == formatJSON {
		ctx.JSON(http.StatusOK, gin.H{"customers": server.customerViews(customers)})
		return
	}
	server.writeExport(ctx, format, "customers", export.CustomersTable(customers))
}

func (server *Server) handleExportTransactions(ctx *gin.Context) {
	format, ok := exportFormat(ctx)
	if !ok {
		return
	}
	filter, ok := server.transactionFilter(ctx)
	if !ok {
		return
	}
	// Exports cover the whole filtered range, not one page.
	records, _, _, err := server.wallets.Transactions(ctx.Request.Context(), filter)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if format == formatJSON {
		ctx.JSON(http.StatusOK, gin.H{"transactions": transactionRecordViews(records)})
		return
	}
	server.writeExport(ctx, format, "transactions", export.TransactionsTable(records))
}

func (server *Server) handleExportSessions(ctx *gin.Context) {
	format, ok := exportFormat(ctx)
	if !ok {
		return
	}
	records, _, err := server.wallets.Sessions(ctx.Request.Context(), 0, 0)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if format == formatJSON {
		ctx.JSON(http.StatusOK, gin.H{"sessions": sessionRecordViews(records)})
		return
	}
	server.writeExport(ctx, format, "sessions", export.SessionsTable(records))
}
