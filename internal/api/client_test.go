package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentportal/internal/models"
	"studentportal/internal/tokenstore"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *tokenstore.Accessor, context.Context) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := tokenstore.NewAccessor(tokenstore.NewMemoryStore(time.Hour))
	ctx := tokenstore.WithSessionID(context.Background(), "test-session")
	return New(srv.URL+"/api", tokens, WithTimeout(2*time.Second)), tokens, ctx
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginStoresTokenAndInjectsBearer(t *testing.T) {
	var gotAuth atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])
		assert.NotContains(t, body, "index_number")
		assert.Empty(t, r.Header.Get("Authorization"), "no token before login")
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"access_token": "tok-123",
			"user":         map[string]any{"id": 1, "email": "a@b.com", "role": "student"},
		})
	})
	mux.HandleFunc("GET /api/user-detail/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "email": "a@b.com", "role": "student"})
	})

	client, tokens, ctx := newTestClient(t, mux)

	result, err := client.Login(ctx, Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.User.IsStudent())

	token, _ := tokens.GetToken(ctx)
	assert.Equal(t, "tok-123", token)

	user, err := client.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "Bearer tok-123", gotAuth.Load())
}

func TestLoginByIndexNumber(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "IDX-0042", body["index_number"])
		assert.NotContains(t, body, "email")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": "tok-idx"})
	})
	client, tokens, ctx := newTestClient(t, mux)

	_, err := client.Login(ctx, Credentials{IndexNumber: "IDX-0042", Password: "x"})
	require.NoError(t, err)
	token, _ := tokens.GetToken(ctx)
	assert.Equal(t, "tok-idx", token)
}

func TestLoginUnsuccessfulResult(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Invalid credentials"})
	})
	client, tokens, ctx := newTestClient(t, mux)

	result, err := client.Login(ctx, Credentials{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Invalid credentials", result.Error)

	token, _ := tokens.GetToken(ctx)
	assert.Empty(t, token)
}

func TestLoginRejectedIsAuthError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, status, map[string]any{"success": false, "error": "Invalid credentials"})
			})
			client, _, ctx := newTestClient(t, mux)

			_, err := client.Login(ctx, Credentials{Email: "a@b.com", Password: "x"})
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, "Invalid credentials", authErr.Error())
			assert.Equal(t, KindAuth, Classify(err))
		})
	}
}

func TestLoginValidationMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	client, _, ctx := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	cases := []Credentials{
		{Password: "x"},
		{Email: "a@b.com", IndexNumber: "IDX-1", Password: "x"},
		{Email: "a@b.com"},
	}
	for _, creds := range cases {
		_, err := client.Login(ctx, creds)
		assert.Equal(t, KindValidation, Classify(err), "%+v", creds)
	}
	assert.Zero(t, calls.Load())
}

func TestCheckSessionWithoutTokenMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	client, _, ctx := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	status, err := client.CheckSession(ctx)
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)
	assert.Zero(t, calls.Load())
}

func TestCheckSession(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        any
		wantLogged  bool
		wantStudent bool
		wantErr     bool
	}{
		{
			name:        "student session",
			status:      http.StatusOK,
			body:        map[string]any{"logged_in": true, "is_student": true, "user": map[string]any{"role": "student"}},
			wantLogged:  true,
			wantStudent: true,
		},
		{
			name:        "role implies student",
			status:      http.StatusOK,
			body:        map[string]any{"logged_in": true, "user": map[string]any{"role": "student"}},
			wantLogged:  true,
			wantStudent: true,
		},
		{
			name:   "expired token",
			status: http.StatusUnauthorized,
			body:   map[string]any{"detail": "Token expired"},
		},
		{
			name:    "server failure",
			status:  http.StatusInternalServerError,
			body:    map[string]any{"error": "boom"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "Bearer stored", r.Header.Get("Authorization"))
				writeJSON(w, tt.status, tt.body)
			})
			client, tokens, ctx := newTestClient(t, mux)
			require.NoError(t, tokens.SetToken(ctx, "stored"))

			status, err := client.CheckSession(ctx)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindTransient, Classify(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLogged, status.LoggedIn)
			assert.Equal(t, tt.wantStudent, status.IsStudent)
		})
	}
}

func TestLogoutClearsTokenWhenServerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close() // every call now fails at the transport

	tokens := tokenstore.NewAccessor(tokenstore.NewMemoryStore(time.Hour))
	ctx := tokenstore.WithSessionID(context.Background(), "sid")
	require.NoError(t, tokens.SetToken(ctx, "tok"))

	client := New(baseURL, tokens, WithTimeout(time.Second))
	err := client.Logout(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	token, _ := tokens.GetToken(ctx)
	assert.Empty(t, token, "token must be cleared even though the server call failed")
}

func TestLogoutCallsServer(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	client, tokens, ctx := newTestClient(t, mux)
	require.NoError(t, tokens.SetToken(ctx, "tok"))

	require.NoError(t, client.Logout(ctx))
	assert.Equal(t, int32(1), calls.Load())

	// Without a token there is nothing to invalidate server-side
	require.NoError(t, client.Logout(ctx))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetCurrentUserUnauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user-detail/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid token."})
	})
	client, tokens, ctx := newTestClient(t, mux)

	_, err := client.GetCurrentUser(ctx)
	assert.Equal(t, KindAuth, Classify(err), "no token is an auth error")

	require.NoError(t, tokens.SetToken(ctx, "stale"))
	_, err = client.GetCurrentUser(ctx)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid token.", authErr.Message)
}

func TestPasswordResetErrorsAreVerbatim(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/password-reset/request/", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /api/password-reset/verify/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "123456", body["verification_code"])
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid or expired code"})
	})
	client, _, ctx := newTestClient(t, mux)

	require.NoError(t, client.RequestVerificationCode(ctx, "a@b.com"))

	err := client.VerifyResetCode(ctx, "a@b.com", "123456")
	require.Error(t, err)
	assert.Equal(t, "Invalid or expired code", UserMessage(err))
}

func TestChangePasswordSendsBearerAndBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/change-password/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"verification_code": "111",
			"old_password":      "oldpass12",
			"new_password":      "newpass12",
		}, body)
		w.WriteHeader(http.StatusOK)
	})
	client, tokens, ctx := newTestClient(t, mux)
	require.NoError(t, tokens.SetToken(ctx, "tok"))

	err := client.ChangePassword(ctx, ChangePasswordRequest{
		VerificationCode: "111",
		OldPassword:      "oldpass12",
		NewPassword:      "newpass12",
	})
	require.NoError(t, err)
}

func TestSubmitTicketMultipart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Ama Mensah", r.FormValue("full_name"))
		assert.Equal(t, "admissions", r.FormValue("section"))
		assert.Equal(t, "high", r.FormValue("severity"))

		file, header, err := r.FormFile("screenshot")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "shot.png", header.Filename)
		assert.Equal(t, "PNGDATA", string(data))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 9})
	})
	client, _, ctx := newTestClient(t, mux)

	err := client.SubmitTicket(ctx, models.Ticket{
		FullName:    "Ama Mensah",
		Email:       "ama@example.com",
		PhoneNumber: "0240000000",
		Section:     models.SectionAdmissions,
		Severity:    models.SeverityHigh,
		Description: "Cannot see my admission letter",
		Screenshot:  &models.Screenshot{Filename: "shot.png", ContentType: "image/png", Body: strings.NewReader("PNGDATA")},
	})
	require.NoError(t, err)
}

func TestBillingEndpoints(t *testing.T) {
	var seen []string
	mux := http.NewServeMux()
	record := func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
	}
	mux.HandleFunc("GET /api/my-bills/", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		writeJSON(w, http.StatusOK, map[string]any{
			"student": "Ama Mensah", "current_class": "JHS 2",
			"summary": map[string]any{"total_bills": 1, "total_outstanding_balance": "120.00"},
			"bills":   []any{map[string]any{"id": 7, "payment_status": "partial"}},
		})
	})
	mux.HandleFunc("GET /api/my-bills/current-class/", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		writeJSON(w, http.StatusOK, []any{map[string]any{"id": 7}})
	})
	mux.HandleFunc("PATCH /api/billing/bills/7/custom-charges/3/", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "75.00", body["amount"])
		assert.NotContains(t, body, "id")
		writeJSON(w, http.StatusOK, map[string]any{"id": 3, "charge_name": "Trip", "amount": "75.00"})
	})
	mux.HandleFunc("DELETE /api/billing/bills/7/custom-charges/3/", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/billing/bills/7/payment/", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mobile_money", body["payment_method"])
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Payment recorded"})
	})
	mux.HandleFunc("GET /api/billing/bills/7/download/", func(w http.ResponseWriter, r *http.Request) {
		record(w, r)
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})
	client, tokens, ctx := newTestClient(t, mux)
	require.NoError(t, tokens.SetToken(ctx, "tok"))

	all, err := client.GetAllBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Amount(120), all.Summary.TotalOutstandingBalance)
	require.Len(t, all.Bills, 1)

	current, err := client.GetCurrentClassBills(ctx)
	require.NoError(t, err)
	assert.Len(t, current, 1)

	updated, err := client.UpdateCustomCharge(ctx, 7, 3, models.CustomCharge{ID: 3, ChargeName: "Trip", Amount: 75})
	require.NoError(t, err)
	assert.Equal(t, "Trip", updated.ChargeName)

	require.NoError(t, client.DeleteCustomCharge(ctx, 7, 3))

	paid, err := client.MakePayment(ctx, 7, 50, "mobile_money")
	require.NoError(t, err)
	assert.True(t, paid.Success)

	pdf, err := client.DownloadBillPDF(ctx, 7)
	require.NoError(t, err)
	data, _ := io.ReadAll(pdf.Body)
	pdf.Body.Close()
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "application/pdf", pdf.ContentType)

	assert.Equal(t, []string{
		"GET /api/my-bills/",
		"GET /api/my-bills/current-class/",
		"PATCH /api/billing/bills/7/custom-charges/3/",
		"DELETE /api/billing/bills/7/custom-charges/3/",
		"POST /api/billing/bills/7/payment/",
		"GET /api/billing/bills/7/download/",
	}, seen)
}

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error": "Invalid credentials"}`, want: "Invalid credentials"},
		{name: "message field", body: `{"message": "Code expired"}`, want: "Code expired"},
		{name: "detail field", body: `{"detail": "Not found."}`, want: "Not found."},
		{name: "error wins", body: `{"detail": "d", "error": "e"}`, want: "e"},
		{name: "field errors", body: `{"email": ["Enter a valid email address."]}`, want: "Enter a valid email address."},
		{name: "non field errors", body: `{"non_field_errors": ["Passwords do not match"]}`, want: "Passwords do not match"},
		{name: "plain text", body: "Bad Gateway\n", want: "Bad Gateway"},
		{name: "empty object", body: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractMessage([]byte(tt.body)))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "unauthorized", err: &AuthError{StatusCode: 401, Message: "x"}, want: KindAuth},
		{name: "forbidden wrapped", err: fmt.Errorf("loading: %w", &AuthError{StatusCode: 403}), want: KindAuth},
		{name: "bad request", err: &APIError{StatusCode: 400, Message: "bad"}, want: KindValidation},
		{name: "local validation", err: &ValidationError{Field: "f", Message: "m"}, want: KindValidation},
		{name: "server error", err: &APIError{StatusCode: 502}, want: KindTransient},
		{name: "rate limited", err: &APIError{StatusCode: 429}, want: KindTransient},
		{name: "unreachable", err: fmt.Errorf("%w: dial", ErrUnavailable), want: KindTransient},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTransient},
		{name: "teapot", err: &APIError{StatusCode: 418}, want: KindUnknown},
		{name: "other", err: errors.New("boom"), want: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Invalid credentials", UserMessage(&AuthError{StatusCode: 401, Message: "Invalid credentials"}))
	assert.Equal(t, msgTransient, UserMessage(fmt.Errorf("%w: dial", ErrUnavailable)))
	assert.Equal(t, msgUnknown, UserMessage(errors.New("decoding response: EOF")))
}
