package enums

import "testing"

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{in: "cash", want: PaymentMethodCash},
		{in: " Card ", want: PaymentMethodCard},
		{in: "", want: PaymentMethodCash},
		{in: "MOBILE", want: PaymentMethodMobile},
		{in: "cheque", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePaymentMethod(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParsePaymentMethod(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePaymentMethod(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParsePaymentMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOperatorRoleValidity(t *testing.T) {
	if !OperatorRoleAdmin.IsValid() || !OperatorRoleCashier.IsValid() {
		t.Fatal("expected known roles to be valid")
	}
	if OperatorRole("owner").IsValid() {
		t.Fatal("unexpected valid role")
	}
	if _, err := ParseOperatorRole("cashier"); err != nil {
		t.Fatalf("ParseOperatorRole: %v", err)
	}
	if _, err := ParseOperatorRole("Cashier"); err == nil {
		t.Fatal("role parsing is exact")
	}
}
