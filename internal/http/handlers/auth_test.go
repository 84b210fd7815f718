package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/api/internal/domain/user"
	"github.com/taskhub/api/internal/http/handlers"
	"github.com/taskhub/api/internal/http/middlewares"
)

type fakeUsersRepo struct {
	createFn      func(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error)
	emailExistsFn func(ctx context.Context, email string) (bool, error)
	getByEmailFn  func(ctx context.Context, email string) (user.User, error)
	getByIDFn     func(ctx context.Context, id string) (user.User, error)
	updateFn      func(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error)
}

func (f *fakeUsersRepo) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, email, passwordHash, firstName, lastName)
	}
	return user.User{}, nil
}

func (f *fakeUsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	if f.emailExistsFn != nil {
		return f.emailExistsFn(ctx, email)
	}
	return false, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return user.User{}, user.ErrNotFound
}

type fakeIssuer struct {
	token string
	err   error
}

func (f *fakeIssuer) Issue(userID, email string) (string, error) {
	return f.token, f.err
}

type fakeHasher struct {
	checkErr    error
	dummyCalled bool
}

func (f *fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (f *fakeHasher) Check(hash, plain string) error { return f.checkErr }

func (f *fakeHasher) DummyCheck(plain string) { f.dummyCalled = true }

func setupAuthRouter(repo *fakeUsersRepo, hasher *fakeHasher, userID string) *gin.Engine {
	r := gin.New()

	h := handlers.NewAuthHandler(repo, &fakeIssuer{token: "signed.jwt.token"}, hasher)

	identity := func(c *gin.Context) {
		if userID != "" {
			middlewares.SetIdentity(c, userID, "user@example.com")
		}
		c.Next()
	}

	g := r.Group("/api/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/profile", identity, h.GetProfile)
	g.PUT("/profile", identity, h.UpdateProfile)
	g.POST("/logout", identity, h.Logout)
	g.GET("/verify", identity, h.Verify)

	return r
}

func TestRegister(t *testing.T) {
	validBody := `{"email":"jane@example.com","password":"Sup3rSecret!","firstName":"Jane","lastName":"Doe"}`

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "success",
			body:       validBody,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "bad email",
			body:       `{"email":"not-an-email","password":"Sup3rSecret!","firstName":"Jane","lastName":"Doe"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "weak password no special char",
			body:       `{"email":"jane@example.com","password":"Password1","firstName":"Jane","lastName":"Doe"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "weak password no digit",
			body:       `{"email":"jane@example.com","password":"Password!","firstName":"Jane","lastName":"Doe"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "short password",
			body:       `{"email":"jane@example.com","password":"Ab1!","firstName":"Jane","lastName":"Doe"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "name with digits",
			body:       `{"email":"jane@example.com","password":"Sup3rSecret!","firstName":"Jane2","lastName":"Doe"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing last name",
			body:       `{"email":"jane@example.com","password":"Sup3rSecret!","firstName":"Jane"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{
				createFn: func(_ context.Context, email, hash, first, last string) (user.User, error) {
					if hash == "Sup3rSecret!" {
						t.Fatal("password stored in plaintext")
					}
					return user.User{ID: testUserID, Email: email, FirstName: first, LastName: last, CreatedAt: time.Now()}, nil
				},
			}

			r := setupAuthRouter(repo, &fakeHasher{}, "")
			w, env := doJSON(t, r, http.MethodPost, "/api/auth/register", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Fatalf("error = %+v, want %s", env.Error, tt.wantCode)
				}
				return
			}

			var data struct {
				User  user.User `json:"user"`
				Token string    `json:"token"`
			}
			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatal(err)
			}

			if data.Token != "signed.jwt.token" {
				t.Fatalf("token = %q", data.Token)
			}
			if data.User.Email != "jane@example.com" {
				t.Fatalf("user = %+v", data.User)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	body := `{"email":"jane@example.com","password":"Sup3rSecret!","firstName":"Jane","lastName":"Doe"}`

	t.Run("pre-check hit", func(t *testing.T) {
		repo := &fakeUsersRepo{
			emailExistsFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		}

		r := setupAuthRouter(repo, &fakeHasher{}, "")
		w, env := doJSON(t, r, http.MethodPost, "/api/auth/register", body)

		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
		if env.Error == nil || env.Error.Code != "USER_EXISTS" {
			t.Fatalf("error = %+v", env.Error)
		}
	})

	t.Run("lost the race after the pre-check", func(t *testing.T) {
		repo := &fakeUsersRepo{
			emailExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
			createFn: func(_ context.Context, _, _, _, _ string) (user.User, error) {
				return user.User{}, user.ErrEmailTaken
			},
		}

		r := setupAuthRouter(repo, &fakeHasher{}, "")
		w, env := doJSON(t, r, http.MethodPost, "/api/auth/register", body)

		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
		if env.Error == nil || env.Error.Code != "USER_EXISTS" {
			t.Fatalf("error = %+v", env.Error)
		}
	})
}

func TestLogin(t *testing.T) {
	known := user.User{ID: testUserID, Email: "jane@example.com", PasswordHash: "hashed:Sup3rSecret!"}

	t.Run("success", func(t *testing.T) {
		repo := &fakeUsersRepo{
			getByEmailFn: func(_ context.Context, email string) (user.User, error) {
				if email != known.Email {
					return user.User{}, user.ErrNotFound
				}
				return known, nil
			},
		}

		r := setupAuthRouter(repo, &fakeHasher{}, "")
		w, env := doJSON(t, r, http.MethodPost, "/api/auth/login", `{"email":"jane@example.com","password":"Sup3rSecret!"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}

		var data struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatal(err)
		}
		if data.Token == "" {
			t.Fatal("no token in login response")
		}
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		unknownRepo := &fakeUsersRepo{
			getByEmailFn: func(_ context.Context, _ string) (user.User, error) {
				return user.User{}, user.ErrNotFound
			},
		}
		unknownHasher := &fakeHasher{}

		wrongPassRepo := &fakeUsersRepo{
			getByEmailFn: func(_ context.Context, _ string) (user.User, error) {
				return known, nil
			},
		}
		wrongPassHasher := &fakeHasher{checkErr: errors.New("mismatch")}

		r1 := setupAuthRouter(unknownRepo, unknownHasher, "")
		w1, env1 := doJSON(t, r1, http.MethodPost, "/api/auth/login", `{"email":"ghost@example.com","password":"Whatever1!"}`)

		r2 := setupAuthRouter(wrongPassRepo, wrongPassHasher, "")
		w2, env2 := doJSON(t, r2, http.MethodPost, "/api/auth/login", `{"email":"jane@example.com","password":"Wrong1!aa"}`)

		if w1.Code != http.StatusUnauthorized || w2.Code != http.StatusUnauthorized {
			t.Fatalf("statuses = %d/%d, want 401/401", w1.Code, w2.Code)
		}

		if env1.Error == nil || env2.Error == nil {
			t.Fatal("missing error envelopes")
		}
		if env1.Error.Code != env2.Error.Code || env1.Error.Message != env2.Error.Message {
			t.Fatalf("responses differ: %+v vs %+v", env1.Error, env2.Error)
		}

		if !unknownHasher.dummyCalled {
			t.Fatal("unknown email path skipped the dummy hash comparison")
		}
	})
}

func TestGetProfile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := &fakeUsersRepo{
			getByIDFn: func(_ context.Context, id string) (user.User, error) {
				return user.User{ID: id, Email: "jane@example.com", FirstName: "Jane"}, nil
			},
		}

		r := setupAuthRouter(repo, &fakeHasher{}, testUserID)
		w, env := doJSON(t, r, http.MethodGet, "/api/auth/profile", "")

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}

		var data struct {
			User user.User `json:"user"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatal(err)
		}
		if data.User.ID != testUserID {
			t.Fatalf("user = %+v", data.User)
		}
	})

	t.Run("deleted account is a 404", func(t *testing.T) {
		repo := &fakeUsersRepo{}
		r := setupAuthRouter(repo, &fakeHasher{}, testUserID)
		w, env := doJSON(t, r, http.MethodGet, "/api/auth/profile", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
		if env.Error == nil || env.Error.Code != "USER_NOT_FOUND" {
			t.Fatalf("error = %+v", env.Error)
		}
	})

	t.Run("no identity", func(t *testing.T) {
		repo := &fakeUsersRepo{}
		r := setupAuthRouter(repo, &fakeHasher{}, "")
		w, env := doJSON(t, r, http.MethodGet, "/api/auth/profile", "")

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", w.Code)
		}
		if env.Error == nil || env.Error.Code != "AUTHENTICATION_REQUIRED" {
			t.Fatalf("error = %+v", env.Error)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("partial update forwards only set fields", func(t *testing.T) {
		var got user.UpdateProfileRequest

		repo := &fakeUsersRepo{
			updateFn: func(_ context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
				got = req
				return user.User{ID: id, FirstName: "Janet", LastName: "Doe"}, nil
			},
		}

		r := setupAuthRouter(repo, &fakeHasher{}, testUserID)
		w, _ := doJSON(t, r, http.MethodPut, "/api/auth/profile", `{"firstName":"Janet"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}

		if got.FirstName == nil || *got.FirstName != "Janet" {
			t.Fatalf("firstName = %v", got.FirstName)
		}
		if got.LastName != nil {
			t.Fatalf("lastName should stay nil, got %v", got.LastName)
		}
	})

	t.Run("rejects non-letter names", func(t *testing.T) {
		repo := &fakeUsersRepo{}
		r := setupAuthRouter(repo, &fakeHasher{}, testUserID)
		w, env := doJSON(t, r, http.MethodPut, "/api/auth/profile", `{"firstName":"J4net"}`)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
			t.Fatalf("error = %+v", env.Error)
		}
	})
}

func TestLogout(t *testing.T) {
	repo := &fakeUsersRepo{}
	r := setupAuthRouter(repo, &fakeHasher{}, testUserID)
	w, env := doJSON(t, r, http.MethodPost, "/api/auth/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !env.Success || env.Message != "Logout successful" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestVerify(t *testing.T) {
	repo := &fakeUsersRepo{
		getByIDFn: func(_ context.Context, id string) (user.User, error) {
			return user.User{ID: id, Email: "jane@example.com"}, nil
		},
	}

	r := setupAuthRouter(repo, &fakeHasher{}, testUserID)
	w, env := doJSON(t, r, http.MethodGet, "/api/auth/verify", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var data struct {
		User user.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.User.ID != testUserID {
		t.Fatalf("user = %+v", data.User)
	}
}
