package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/adledger/internal/adapter/http/dto"
	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

type transferServiceStub struct {
	transferFn func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error)
}

func (s *transferServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
	return s.transferFn(ctx, input)
}

func TestTransferHandler_Create_Success(t *testing.T) {
	var captured usecase.TransferInput
	h := NewTransferHandler(&transferServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
			captured = input
			return &domain.Transfer{ID: "tr-1", FromUserID: input.FromUserID, ToUserID: input.ToUserID, Amount: input.Amount}, nil
		},
	})

	body, _ := json.Marshal(dto.TransferRequest{FromUserID: "a", ToUserID: "b", Amount: decimal.NewFromInt(100)})
	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewReader(body))
	req.Header.Set(IdempotencyKeyHeader, "tr-key")
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.FromUserID != "a" || captured.ToUserID != "b" || captured.IdempotencyKey != "tr-key" {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp domain.Transfer
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "tr-1" {
		t.Fatalf("expected transfer tr-1, got %s", resp.ID)
	}
}

func TestTransferHandler_Create_SameAccount(t *testing.T) {
	h := NewTransferHandler(&transferServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error) {
			return nil, domain.ErrSameAccount
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/transfers", bytes.NewBufferString(`{"from_user_id":"a","to_user_id":"a","amount":"1"}`))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
