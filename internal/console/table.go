package console

import (
	"strconv"

	"github.com/glefebvre/animedl/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const timeLayout = "2006-01-02 15:04"

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// RunsTable renders runs, one per row
func RunsTable(runs []models.Run) string {
	headers := []string{"Run", "Catalog", "Variant", "Mode", "Found", "Pending", "Status", "Started"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.Catalog,
			run.Variant,
			run.Mode,
			strconv.Itoa(run.Discovered),
			strconv.Itoa(run.Pending),
			string(run.Status),
			run.StartedAt.Local().Format(timeLayout),
		})
	}
	return renderTable(headers, rows, aligns)
}

// AcquisitionsTable renders episode outcomes, one per row
func AcquisitionsTable(acquisitions []models.Acquisition) string {
	headers := []string{"Catalog", "Episode", "State", "Path / Error", "When"}

	rows := make([][]string, 0, len(acquisitions))
	for _, a := range acquisitions {
		detail := ""
		switch {
		case a.Path != nil:
			detail = *a.Path
		case a.ErrorMessage != nil:
			detail = *a.ErrorMessage
		}
		rows = append(rows, []string{
			a.Catalog,
			a.Identifier,
			string(a.State),
			detail,
			a.CreatedAt.Local().Format(timeLayout),
		})
	}
	return renderTable(headers, rows, nil)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
