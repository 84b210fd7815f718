package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/api/internal/http/handlers"
)

type bindTarget struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required,min=1,max=100,namechars"`
	Age   int    `json:"age" binding:"omitempty,min=0"`
}

func setupBindRouter() *gin.Engine {
	r := gin.New()
	r.POST("/bind", func(c *gin.Context) {
		var in bindTarget
		if !handlers.BindJSON(c, &in) {
			return
		}
		handlers.RespondOK(c, "ok", nil)
	})
	return r
}

type validationDetails struct {
	Fields []handlers.FieldError `json:"fields"`
	JSON   string                `json:"json"`
	Reason string                `json:"reason"`
}

func decodeDetails(t *testing.T, body []byte) validationDetails {
	t.Helper()

	var full struct {
		Error struct {
			Code    string          `json:"code"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &full); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if full.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("code = %q, want VALIDATION_ERROR", full.Error.Code)
	}

	var details validationDetails
	if err := json.Unmarshal(full.Error.Details, &details); err != nil {
		t.Fatalf("bad details: %v", err)
	}
	return details
}

func TestBindJSONFieldErrors(t *testing.T) {
	r := setupBindRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/bind", `{"email":"nope","name":"Jane 42"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	details := decodeDetails(t, w.Body.Bytes())

	byField := map[string]handlers.FieldError{}
	for _, fe := range details.Fields {
		byField[fe.Field] = fe
	}

	emailErr, ok := byField["email"]
	if !ok {
		t.Fatalf("no error for json field %q in %+v", "email", details.Fields)
	}
	if emailErr.Rule != "email" || emailErr.Message != "must be a valid email address" {
		t.Fatalf("email error = %+v", emailErr)
	}

	nameErr, ok := byField["name"]
	if !ok {
		t.Fatalf("no error for json field %q in %+v", "name", details.Fields)
	}
	if nameErr.Rule != "namechars" {
		t.Fatalf("name error = %+v", nameErr)
	}
}

func TestBindJSONRequiredUsesJSONNames(t *testing.T) {
	r := setupBindRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/bind", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	details := decodeDetails(t, w.Body.Bytes())

	for _, fe := range details.Fields {
		// errors must name the wire field, not the Go struct field
		if fe.Field == "Email" || fe.Field == "Name" {
			t.Fatalf("struct field name leaked: %+v", fe)
		}
		if fe.Message != "is required" {
			t.Fatalf("message = %q", fe.Message)
		}
	}

	if len(details.Fields) != 2 {
		t.Fatalf("fields = %+v, want email and name", details.Fields)
	}
}

func TestBindJSONSyntaxError(t *testing.T) {
	r := setupBindRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/bind", `{"email": "a@b.co", `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestBindJSONTypeMismatch(t *testing.T) {
	r := setupBindRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/bind", `{"email":"a@b.co","name":"Jane","age":"twelve"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	details := decodeDetails(t, w.Body.Bytes())

	if details.JSON != "invalid_json_type" {
		t.Fatalf("details = %+v", details)
	}
	if len(details.Fields) != 1 || details.Fields[0].Field != "age" || details.Fields[0].Rule != "type" {
		t.Fatalf("fields = %+v", details.Fields)
	}
}

func TestValidationMessagesInDetails(t *testing.T) {
	r := gin.New()
	r.POST("/pw", func(c *gin.Context) {
		var in struct {
			Password string `json:"password" binding:"required,min=8,strongpassword"`
		}
		if !handlers.BindJSON(c, &in) {
			return
		}
		handlers.RespondOK(c, "ok", nil)
	})

	w, _ := doJSON(t, r, http.MethodPost, "/pw", `{"password":"alllowercase1!"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	details := decodeDetails(t, w.Body.Bytes())

	if len(details.Fields) != 1 {
		t.Fatalf("fields = %+v", details.Fields)
	}
	if details.Fields[0].Rule != "strongpassword" {
		t.Fatalf("rule = %q", details.Fields[0].Rule)
	}
	if details.Fields[0].Message == "" {
		t.Fatal("strongpassword message missing")
	}
}
