package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTokenSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := TokenSession{
				ID:        "test-session",
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			result := session.IsExpired()
			if result != tt.want {
				t.Errorf("TokenSession.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestUserIsStudent(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want bool
	}{
		{name: "student", user: &User{Role: "student"}, want: true},
		{name: "mixed case", user: &User{Role: "Student"}, want: true},
		{name: "staff", user: &User{Role: "teacher"}, want: false},
		{name: "empty role", user: &User{}, want: false},
		{name: "nil user", user: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.IsStudent(); got != tt.want {
				t.Errorf("User.IsStudent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserFullName(t *testing.T) {
	u := User{FirstName: "Ama", LastName: "Mensah", Email: "ama@example.com"}
	if got := u.FullName(); got != "Ama Mensah" {
		t.Errorf("FullName() = %q, want %q", got, "Ama Mensah")
	}

	u = User{Email: "ama@example.com"}
	if got := u.FullName(); got != "ama@example.com" {
		t.Errorf("FullName() = %q, want email fallback", got)
	}
}

func TestAmountUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Amount
		wantErr bool
	}{
		{name: "decimal string", input: `"1500.50"`, want: 1500.50},
		{name: "number", input: `250`, want: 250},
		{name: "negative number", input: `-12.5`, want: -12.5},
		{name: "empty string", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Amount
			err := json.Unmarshal([]byte(tt.input), &a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && a != tt.want {
				t.Errorf("Unmarshal() = %v, want %v", a, tt.want)
			}
		})
	}
}

func TestBillDecodesBackendPayload(t *testing.T) {
	payload := `{
		"id": 7,
		"bill_number": "BILL-007",
		"billing_template": {"class_name": "JHS 2", "term": "first", "billing_items": [{"id": 1, "amount": "100.00"}]},
		"payment_status": "partial",
		"total_amount_due": "350.00",
		"current_bill_balance": 120.5,
		"custom_charges": [{"id": 3, "charge_name": "Excursion", "amount": "50"}],
		"scheduled_date": null
	}`

	var bill Bill
	if err := json.Unmarshal([]byte(payload), &bill); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if bill.BillingTemplate.ClassName != "JHS 2" {
		t.Errorf("ClassName = %q, want JHS 2", bill.BillingTemplate.ClassName)
	}
	if bill.TotalAmountDue != 350 || bill.CurrentBillBalance != 120.5 {
		t.Errorf("amounts = %v/%v, want 350/120.5", bill.TotalAmountDue, bill.CurrentBillBalance)
	}
	if len(bill.CustomCharges) != 1 || bill.CustomCharges[0].Amount != 50 {
		t.Errorf("custom charges = %+v", bill.CustomCharges)
	}
}
