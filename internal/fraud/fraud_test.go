package fraud

import (
	"errors"
	"testing"
)

func f64(v float64) *float64 { return &v }

func validTransaction() *Transaction {
	return &Transaction{
		ID:         "tx-1",
		CustomerID: "cust-1",
		Amount:     42.50,
		Timestamp:  "2020-12-22 14:13:39",
		Merchant:   "fraud_Kirlin and Sons",
		Category:   "grocery_pos",
		Lat:        f64(40.7128),
		Long:       f64(-74.0060),
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validTransaction().Validate(); err != nil {
		t.Fatalf("expected valid transaction, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"zero amount", func(tx *Transaction) { tx.Amount = 0 }},
		{"negative amount", func(tx *Transaction) { tx.Amount = -10 }},
		{"missing timestamp", func(tx *Transaction) { tx.Timestamp = "" }},
		{"missing merchant", func(tx *Transaction) { tx.Merchant = "" }},
		{"latitude out of range", func(tx *Transaction) { tx.Lat = f64(91) }},
		{"longitude out of range", func(tx *Transaction) { tx.Long = f64(-181) }},
		{"merchant latitude out of range", func(tx *Transaction) { tx.MerchLat = f64(-90.5) }},
		{"merchant longitude out of range", func(tx *Transaction) { tx.MerchLong = f64(180.5) }},
		{"negative distance", func(tx *Transaction) { tx.DistanceFromHomeKM = f64(-1) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTransaction()
			tc.mutate(tx)
			err := tx.Validate()
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestValidate_ExtremeDistanceAllowed(t *testing.T) {
	tx := validTransaction()
	tx.DistanceFromHomeKM = f64(5000)
	if err := tx.Validate(); err != nil {
		t.Fatalf("extreme distance should pass validation, got %v", err)
	}
}

func TestSeverityPoints(t *testing.T) {
	cases := map[Severity]int{
		SeverityHigh:   20,
		SeverityMedium: 10,
		SeverityLow:    5,
		SeverityNone:   0,
	}
	for sev, want := range cases {
		if got := sev.Points(); got != want {
			t.Errorf("Points(%s) = %d, want %d", sev, got, want)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityHigh.AtLeast(SeverityMedium) {
		t.Error("high should be at least medium")
	}
	if !SeverityMedium.AtLeast(SeverityMedium) {
		t.Error("medium should be at least medium")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Error("low should not be at least medium")
	}
	if !SeverityNone.AtLeast(SeverityNone) {
		t.Error("none should be at least none")
	}
}

func TestHasUsualHour(t *testing.T) {
	h := &CustomerHistory{UsualHours: []int{10, 14, 18}}
	if !h.HasUsualHour(14) {
		t.Error("14 should be a usual hour")
	}
	if h.HasUsualHour(3) {
		t.Error("3 should not be a usual hour")
	}

	// Unknown sets never flag
	empty := &CustomerHistory{}
	if !empty.HasUsualHour(3) {
		t.Error("empty set should treat any hour as usual")
	}
	var nilHist *CustomerHistory
	if !nilHist.HasUsualHour(3) {
		t.Error("nil history should treat any hour as usual")
	}
}
