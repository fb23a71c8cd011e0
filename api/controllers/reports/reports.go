package reports

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/toolyard-backend/api/middleware"
	"github.com/angelmondragon/toolyard-backend/api/responses"
	"github.com/angelmondragon/toolyard-backend/api/validators"
	internalreports "github.com/angelmondragon/toolyard-backend/internal/reports"
	"github.com/angelmondragon/toolyard-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/toolyard-backend/pkg/errors"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

// Weekly serves ?weeks= (default 10).
func Weekly(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return series(svc, logg, enums.ReportGranularityWeek, "weeks", 10)
}

// Monthly serves ?months= (default 12).
func Monthly(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return series(svc, logg, enums.ReportGranularityMonth, "months", 12)
}

// Realtime serves ?days= (default 7).
func Realtime(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return series(svc, logg, enums.ReportGranularityDay, "days", 7)
}

func series(svc internalreports.Service, logg *logger.Logger, g enums.ReportGranularity, countParam string, defaultCount int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := validators.QueryInt(r, countParam, defaultCount, 1, internalreports.MaxBuckets[g])
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.QueryUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := enums.ParseReportPaymentFilter(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("filter"))))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter").
				WithDetails(map[string]any{"field": "filter"}))
			return
		}

		buckets, err := svc.Aggregate(r.Context(), internalreports.Query{
			Actor:       actor,
			Granularity: g,
			Count:       count,
			ProductID:   productID,
			Filter:      filter,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, buckets)
	}
}
