package http

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

func TestDomainError_StatusByCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.Wrap(apperrors.CodeInvalidInput, "bad", nil), http.StatusUnprocessableEntity, apperrors.CodeInvalidInput},
		{apperrors.Wrap(apperrors.CodeFormat, "bad csv", nil), http.StatusBadRequest, apperrors.CodeFormat},
		{apperrors.Wrap(apperrors.CodeUnsupportedFile, "pdf", nil), http.StatusUnsupportedMediaType, apperrors.CodeUnsupportedFile},
		{apperrors.Wrap(apperrors.CodeNetwork, "down", nil), http.StatusBadGateway, apperrors.CodeNetwork},
		{apperrors.Wrap(apperrors.CodeRequest, "rejected", nil), http.StatusBadGateway, apperrors.CodeRequest},
		{apperrors.Wrap(apperrors.CodeNotFound, "gone", nil), http.StatusNotFound, apperrors.CodeNotFound},
		{apperrors.Wrap(apperrors.CodeStorage, "disk", nil), http.StatusInternalServerError, apperrors.CodeStorage},
		{apperrors.Wrap("quota_exceeded", "unmapped", nil), http.StatusInternalServerError, codeInternal},
		{errors.New("plain"), http.StatusInternalServerError, codeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			got := domainError(tc.err)
			require.Equal(t, tc.status, got.Status)
			require.Equal(t, tc.code, got.Code)
			require.Equal(t, tc.err.Error(), got.Message)
			require.Nil(t, got.Details)
		})
	}
}

func TestDomainError_ValidationDetails(t *testing.T) {
	validation := classifier.ValidationErrors{{Parameter: classifier.PlanetRadius, Message: "Planet Radius is required"}}
	got := domainError(apperrors.Wrap(apperrors.CodeInvalidInput, "invalid parameters", validation))

	require.Equal(t, http.StatusUnprocessableEntity, got.Status)
	require.Equal(t, []classifier.ValidationError(validation), got.Details)
}
