package enums

import "fmt"

// ReportGranularity controls the calendar bucket size of sales reports.
type ReportGranularity string

const (
	ReportGranularityDay   ReportGranularity = "day"
	ReportGranularityWeek  ReportGranularity = "week"
	ReportGranularityMonth ReportGranularity = "month"
)

// IsValid reports whether the granularity is supported.
func (g ReportGranularity) IsValid() bool {
	switch g {
	case ReportGranularityDay, ReportGranularityWeek, ReportGranularityMonth:
		return true
	}
	return false
}

// ReportPaymentFilter selects which payment sources feed a report.
type ReportPaymentFilter string

const (
	ReportFilterAll      ReportPaymentFilter = "all"
	ReportFilterOnline   ReportPaymentFilter = "online"
	ReportFilterPayLater ReportPaymentFilter = "pay_later"
)

// ParseReportPaymentFilter converts raw input into a ReportPaymentFilter. Empty
// input stays unset, which reports online sales only.
func ParseReportPaymentFilter(value string) (ReportPaymentFilter, error) {
	switch ReportPaymentFilter(value) {
	case "", ReportFilterAll, ReportFilterOnline, ReportFilterPayLater:
		return ReportPaymentFilter(value), nil
	}
	return "", fmt.Errorf("invalid report filter %q", value)
}

// IncludesStripe reports whether online payments contribute under this filter.
func (f ReportPaymentFilter) IncludesStripe() bool {
	return f == "" || f == ReportFilterAll || f == ReportFilterOnline
}

// IncludesPayLater reports whether pay-later orders contribute under this filter.
func (f ReportPaymentFilter) IncludesPayLater() bool {
	return f == ReportFilterAll || f == ReportFilterPayLater
}
