package domain

import (
	"testing"
	"time"
)

func TestExpirationStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration *time.Time
		want       string
	}{
		{name: "no expiration", expiration: nil, want: ExpirationValid},
		{name: "far future", expiration: timePtr(now.Add(90 * 24 * time.Hour)), want: ExpirationValid},
		{name: "just outside window", expiration: timePtr(now.Add(NearExpiryWindow + time.Hour)), want: ExpirationValid},
		{name: "inside window", expiration: timePtr(now.Add(10 * 24 * time.Hour)), want: ExpirationNearExpiry},
		{name: "window boundary", expiration: timePtr(now.Add(NearExpiryWindow)), want: ExpirationNearExpiry},
		{name: "already expired", expiration: timePtr(now.Add(-time.Hour)), want: ExpirationExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ExpirationStatusAt(tc.expiration, now)
			if got != tc.want {
				t.Fatalf("status = %q, want %q", got, tc.want)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestPaymentSplitRowsSkipsZeroAndNegative(t *testing.T) {
	split := PaymentSplit{CashCents: 1000, EMolaCents: 0, MPesaCents: 500}

	rows := split.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Method != PaymentCash || rows[0].AmountCents != 1000 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Method != PaymentMPesa || rows[1].AmountCents != 500 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}

	negative := PaymentSplit{CashCents: -5, EMolaCents: 200}
	rows = negative.Rows()
	if len(rows) != 1 || rows[0].Method != PaymentEMola {
		t.Fatalf("negative amounts must be skipped, got %+v", rows)
	}
}

func TestPaymentSplitTotal(t *testing.T) {
	split := PaymentSplit{CashCents: 700, EMolaCents: 200, MPesaCents: 100}
	if got := split.TotalCents(); got != 1000 {
		t.Fatalf("total = %d, want 1000", got)
	}

	empty := PaymentSplit{}
	if got := empty.TotalCents(); got != 0 {
		t.Fatalf("empty total = %d, want 0", got)
	}
}

func TestIngredientPatchEmpty(t *testing.T) {
	if !(IngredientPatch{}).Empty() {
		t.Fatal("zero patch must be empty")
	}
	qty := int64(5)
	if (IngredientPatch{Quantity: &qty}).Empty() {
		t.Fatal("patch with quantity must not be empty")
	}
}
