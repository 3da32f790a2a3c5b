package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(CodeLimitExceeded, "campaign cap reached")
	if err.Code() != CodeLimitExceeded {
		t.Fatalf("unexpected code %q", err.Code())
	}
	if err.Message() != "campaign cap reached" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	if err.Error() != "LIMIT_EXCEEDED: campaign cap reached" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row not found")
	err := Wrap(CodeNotFound, cause, "product missing")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if typed := As(err); typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("expected typed NOT_FOUND, got %v", err)
	}
}

func TestAsReturnsNilForForeignErrors(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestMetadataForNewCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeInsufficientResource, http.StatusUnprocessableEntity},
		{CodeLimitExceeded, http.StatusUnprocessableEntity},
		{CodePayment, http.StatusPaymentRequired},
		{Code("SOMETHING_UNKNOWN"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad slab").WithDetails(map[string]string{"minQty": "must be positive"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["minQty"] != "must be positive" {
		t.Fatalf("unexpected details %v", err.Details())
	}
}
