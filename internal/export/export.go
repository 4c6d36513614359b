// Package export renders a daily plan as a printable PDF or a CSV sheet.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/dining-planner/internal/plan"
)

type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

var (
	ErrInvalidFormat = errors.New("format must be 'pdf' or 'csv'")
	ErrEmptyPlan     = errors.New("plan has no meals")
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatPDF, "":
		return FormatPDF, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", ErrInvalidFormat
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/pdf"
}

// Render recomputes the totals of s from its items and renders it as f.
func Render(s plan.DailySuggestion, f Format) ([]byte, error) {
	if len(s.Meals) == 0 {
		return nil, ErrEmptyPlan
	}
	s = recompute(s)
	switch f {
	case FormatCSV:
		return renderCSV(s)
	case FormatPDF:
		return renderPDF(s)
	default:
		return nil, ErrInvalidFormat
	}
}

// Filename is the suggested download name.
func Filename(s plan.DailySuggestion, f Format) string {
	date := s.Date
	if date == "" {
		date = "plan"
	}
	return "meal-plan-" + date + "." + string(f)
}

func recompute(s plan.DailySuggestion) plan.DailySuggestion {
	meals := make([]plan.MealSuggestion, 0, len(s.Meals))
	for _, m := range s.Meals {
		items := make([]plan.SelectedItem, 0, len(m.Items))
		for _, it := range m.Items {
			items = append(items, plan.Select(it.Item, it.Servings))
		}
		meals = append(meals, plan.NewMeal(m.Meal, m.LocationID, items))
	}
	out := plan.NewDaily(s.Date, s.Strategy, meals)
	out.Shortfall = s.Shortfall
	return out
}

var csvHeader = []string{"date", "meal", "location_id", "item_id", "item", "servings", "quantity", "calories", "protein_g", "carbs_g", "fat_g"}

func renderCSV(s plan.DailySuggestion) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, m := range s.Meals {
		for _, it := range m.Items {
			n := float64(it.Servings)
			row := []string{
				s.Date,
				string(m.Meal),
				m.LocationID,
				it.Item.ID,
				it.Item.Name,
				strconv.Itoa(it.Servings),
				it.DisplayQuantity,
				num(it.Item.Calories * n),
				num(it.Item.Protein * n),
				num(it.Item.Carbs * n),
				num(it.Item.Fat * n),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	t := s.DailyTotals
	if err := w.Write([]string{s.Date, "total", "", "", "", "", "", num(t.Calories), num(t.Protein), num(t.Carbs), num(t.Fat)}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDF(s plan.DailySuggestion) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; item names may carry accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	title := "Meal Plan"
	if s.Date != "" {
		title += " for " + s.Date
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	if s.Strategy != "" {
		pdf.Cell(0, 6, "Strategy: "+string(s.Strategy))
		pdf.Ln(8)
	}

	for _, m := range s.Meals {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr(mealTitle(m)))
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(70, 6, "Item", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, "Quantity", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Calories", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Protein", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Carbs", "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, "Fat", "1", 1, "C", false, 0, "")

		pdf.SetFont("Arial", "", 8)
		if len(m.Items) == 0 {
			pdf.CellFormat(180, 6, "Nothing selected", "1", 1, "C", false, 0, "")
		}
		for _, it := range m.Items {
			n := float64(it.Servings)
			pdf.CellFormat(70, 6, tr(truncate(it.Item.Name, 48)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, tr(it.DisplayQuantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 6, num(it.Item.Calories*n), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 6, num(it.Item.Protein*n)+"g", "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 6, num(it.Item.Carbs*n)+"g", "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 6, num(it.Item.Fat*n)+"g", "1", 1, "C", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(100, 6, "Meal total", "1", 0, "R", false, 0, "")
		writeTotals(pdf, m.Totals)
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Daily totals")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	t := s.DailyTotals
	pdf.Cell(0, 6, fmt.Sprintf("%s kcal, %sg protein, %sg carbs, %sg fat", num(t.Calories), num(t.Protein), num(t.Carbs), num(t.Fat)))
	pdf.Ln(6)
	if s.Shortfall != nil && s.Shortfall.Message != "" {
		pdf.MultiCell(0, 6, tr(s.Shortfall.Message), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTotals(pdf *gofpdf.Fpdf, t plan.Totals) {
	pdf.CellFormat(20, 6, num(t.Calories), "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, num(t.Protein)+"g", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, num(t.Carbs)+"g", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, num(t.Fat)+"g", "1", 1, "C", false, 0, "")
}

// num rounds to one decimal and trims trailing zeros: 12.50 -> 12.5.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func mealTitle(m plan.MealSuggestion) string {
	name := string(m.Meal)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name + " at " + m.LocationID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
