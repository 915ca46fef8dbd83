package formatting

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	azstrings "github.com/giantswarm/azauth/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// FormatCacheEntries renders one row per cached token.
func (f *TableFormatter) FormatCacheEntries(entries []CacheEntry) error {
	if len(entries) == 0 {
		fmt.Fprint(f.options.writer(), f.formatEmptyMessage("The token cache is empty"))
		return nil
	}

	t := f.createTable()
	if !f.options.NoHeaders {
		t.AppendHeader(table.Row{"USER", "RESOURCE", "AUTHORITY", "CLIENT", "EXPIRES", "REFRESH"})
	}
	for _, e := range entries {
		t.AppendRow(table.Row{
			userColumn(e),
			e.Resource,
			e.Authority,
			e.ClientID,
			expiryColumn(e),
			refreshColumn(e),
		})
	}
	t.Render()

	if !f.options.Quiet {
		fmt.Fprintf(f.options.writer(), "\n%s %s\n", text.FgHiBlue.Sprint("Total:"), text.FgHiWhite.Sprint(len(entries)))
	}
	return nil
}

// FormatData renders a token as key-value pairs. Other types are only
// supported by the JSON and YAML formatters.
func (f *TableFormatter) FormatData(data interface{}) error {
	switch d := data.(type) {
	case TokenOutput:
		t := f.createTable()
		if !f.options.NoHeaders {
			t.AppendHeader(table.Row{"KEY", "VALUE"})
		}
		t.AppendRows([]table.Row{
			{"tokenType", d.TokenType},
			{"expiresOn", d.ExpiresOn.Local().Format(time.RFC3339)},
			{"tenantID", d.TenantID},
			{"user", azstrings.FirstNonBlank(d.DisplayableID, d.UniqueID)},
			{"authority", d.Authority},
			{"resource", d.Resource},
		})
		t.Render()
	case string:
		fmt.Fprintln(f.options.writer(), d)
	default:
		return fmt.Errorf("table output does not support %T", data)
	}
	return nil
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	if f.options.Quiet {
		t.SetStyle(table.StyleLight)
		t.Style().Options.DrawBorder = false
		t.Style().Options.SeparateColumns = false
		t.Style().Options.SeparateHeader = false
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

func (f *TableFormatter) formatEmptyMessage(message string) string {
	return fmt.Sprintf("%s\n", text.FgYellow.Sprint(message))
}

func userColumn(e CacheEntry) string {
	if user := azstrings.FirstNonBlank(e.DisplayableID, e.UniqueID); user != "" {
		return user
	}
	return text.FgHiBlack.Sprint("<" + e.Subject + ">")
}

func expiryColumn(e CacheEntry) string {
	when := e.ExpiresOn.Local().Format("2006-01-02 15:04:05")
	if e.Expired {
		return text.FgRed.Sprint(when + " (expired)")
	}
	return text.FgGreen.Sprint(when)
}

func refreshColumn(e CacheEntry) string {
	switch {
	case e.MultiResource:
		return "multi-resource"
	case e.HasRefreshToken:
		return "yes"
	default:
		return "no"
	}
}
