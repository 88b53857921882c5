package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/companynet/pkg/common"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	partnerNameWidth = 40
	companyNameWidth = 50
)

var numberPrinter = message.NewPrinter(language.English)

// PrintReport writes the three rankings as console tables.
func PrintReport(w io.Writer, analysis common.Analysis) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nCOMPANY AND PARTNER NETWORK ANALYSIS\n%s\n", rule, rule)

	fmt.Fprintf(w, "\nTOP %d PARTNERS BY NUMBER OF COMPANIES:\n", len(analysis.TopPartnersByCompanies))
	for _, row := range analysis.TopPartnersByCompanies {
		fmt.Fprintf(w, "   %s - %d companies\n", column(row.Name, partnerNameWidth), row.CompanyCount)
	}

	fmt.Fprintf(w, "\nTOP %d COMPANIES BY NUMBER OF PARTNERS:\n", len(analysis.TopCompaniesByPartners))
	for _, row := range analysis.TopCompaniesByPartners {
		fmt.Fprintf(w, "   %s - %d partners\n", column(row.LegalName, companyNameWidth), row.PartnerCount)
	}

	fmt.Fprintf(w, "\nTOP %d COMPANIES BY SHARE CAPITAL:\n", len(analysis.TopCompaniesByCapital))
	for _, row := range analysis.TopCompaniesByCapital {
		fmt.Fprintf(w, "   %s - %s\n", column(row.LegalName, companyNameWidth), FormatCapital(row.Capital))
	}
}

// FormatCapital renders an amount as "R$ 1,234.56".
func FormatCapital(v float64) string {
	return numberPrinter.Sprintf("R$ %.2f", v)
}

// column truncates s to width runes and pads it to width.
func column(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		runes = runes[:width]
	}
	return fmt.Sprintf("%-*s", width, string(runes))
}
