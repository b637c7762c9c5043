package http

import (
	"errors"

	"salespulse/internal/analytics"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/services"
)

var filterKeys = map[string]bool{
	"filters":                        true,
	analytics.KeyCategory:            true,
	analytics.KeyRegion:              true,
	analytics.KeyPaymentMethod:       true,
	analytics.KeyProductNameContains: true,
	analytics.KeyMinRevenue:          true,
	analytics.KeyMaxRevenue:          true,
	analytics.KeyDateFrom:            true,
	analytics.KeyDateTo:              true,
}

// toAPIError maps service and engine errors onto API errors. Errors it does
// not recognize are returned unchanged for the error handler's 500 path.
func toAPIError(err error) error {
	var vErr *analytics.ValidationError
	switch {
	case errors.As(err, &vErr):
		if filterKeys[vErr.Key] {
			return apierrors.InvalidFilter(vErr.Key, vErr.Reason)
		}
		return apierrors.ErrValidation(vErr.Key, vErr.Reason)
	case errors.Is(err, services.ErrDatasetUnavailable):
		return apierrors.DatasetUnavailable(err)
	case errors.Is(err, services.ErrInsightsDisabled):
		return apierrors.ErrInsightsDisabled
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.ErrValidation("kpis", err.Error())
	case errors.Is(err, services.ErrUpstreamFailure):
		return apierrors.UpstreamError(err)
	default:
		return err
	}
}
