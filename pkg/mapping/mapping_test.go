package mapping

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/chris/campus-ledger/pkg/accounts"
	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
	"github.com/chris/campus-ledger/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToApiError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Validation", fmt.Errorf("%w: bad", accounts.ErrInvalidRequest), http.StatusBadRequest},
		{"Amount", transfer.ErrInvalidAmount, http.StatusBadRequest},
		{"Same Account", transfer.ErrSameAccount, http.StatusBadRequest},
		{"Invalid Role", storage.ErrInvalidRole, http.StatusBadRequest},
		{"Param", &api.InvalidParamFormatError{ParamName: "limit", Err: errors.New("bad")}, http.StatusBadRequest},
		{"Unauthenticated", auth.ErrUnauthenticated, http.StatusUnauthorized},
		{"Forbidden", auth.ErrForbidden, http.StatusForbidden},
		{"Caller Disabled", auth.ErrCallerDisabled, http.StatusForbidden},
		{"Not Permitted", fmt.Errorf("%w: %w", transfer.ErrUnauthorized, auth.ErrForbidden), http.StatusForbidden},
		{"Sender Disabled", transfer.ErrAccountDisabled, http.StatusForbidden},
		{"Unknown Participant", fmt.Errorf("%w: x", transfer.ErrUnknownParticipant), http.StatusNotFound},
		{"Account Not Found", storage.ErrAccountNotFound, http.StatusNotFound},
		{"Transaction Not Found", storage.ErrTransactionNotFound, http.StatusNotFound},
		{"Duplicate ID", storage.ErrDuplicateIDNumber, http.StatusConflict},
		{"Duplicate Card", storage.ErrDuplicateCardNumber, http.StatusConflict},
		{"Insufficient Funds", transfer.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"PIN Mismatch", transfer.ErrPINMismatch, http.StatusUnprocessableEntity},
		{"Unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ToApiError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body.Message)
			assert.Nil(t, body.Reference)
		})
	}

	t.Run("Incomplete Wins Over Cause", func(t *testing.T) {
		err := &transfer.IncompleteError{TransactionID: "tx-1", Stage: transfer.StageIndexed, Err: transfer.ErrInsufficientFunds}

		status, body := ToApiError(err)

		assert.Equal(t, http.StatusBadGateway, status)
		require.NotNil(t, body.Reference)
		assert.Equal(t, "tx-1", *body.Reference)
		assert.Contains(t, body.Message, "tx-1")
	})

	t.Run("Internal Details Hidden", func(t *testing.T) {
		_, body := ToApiError(errors.New("dynamodb: throttled"))
		assert.Equal(t, "internal server error", body.Message)
	})
}

func TestToApiAccount(t *testing.T) {
	pin := "hash"
	acc := &models.Account{
		AccountKey: "key-1",
		IDNumber:   "2020-0001",
		CardNumber: "CARD-1",
		Email:      "juan@campus.edu",
		FirstName:  "Juan",
		LastName:   "Dela Cruz",
		Role:       models.RoleStudent,
		Funds:      500,
		PINHash:    &pin,
		CreatedAt:  time.Now(),
	}

	t.Run("Full", func(t *testing.T) {
		out := ToApiAccount(&accounts.Profile{
			Account:   acc,
			Extension: &models.RoleExtension{Fields: map[string]string{"course": "BSIT"}},
			Full:      true,
		})

		require.NotNil(t, out.Funds)
		assert.Equal(t, int64(500), *out.Funds)
		require.NotNil(t, out.CardNumber)
		assert.Equal(t, "CARD-1", *out.CardNumber)
		require.NotNil(t, out.HasPin)
		assert.True(t, *out.HasPin)
		assert.Nil(t, out.MiddleName)
		require.NotNil(t, out.RoleFields)
		assert.Equal(t, "BSIT", (*out.RoleFields)["course"])
	})

	t.Run("Redacted", func(t *testing.T) {
		out := ToApiAccount(&accounts.Profile{Account: acc})

		assert.Equal(t, api.Account{
			IdNumber:  "2020-0001",
			FirstName: "Juan",
			LastName:  "Dela Cruz",
			Role:      "student",
		}, out)
	})
}

func TestToTransferRequest(t *testing.T) {
	card := "CARD-1"
	pin := "1234"
	req := ToTransferRequest(&api.NewTransaction{
		Type:             api.TransactionTypePayment,
		Amount:           75,
		SenderCardNumber: &card,
		ReceiverIdNumber: "cash-1",
		Pin:              &pin,
	}, "req-1")

	assert.Equal(t, transfer.Request{
		Type:             models.PAYMENT,
		Amount:           75,
		SenderCardNumber: "CARD-1",
		ReceiverIDNumber: "cash-1",
		PIN:              "1234",
		RequestID:        "req-1",
	}, req)
}
