package security

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a configurable cost factor.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash hashes a plain text password with bcrypt.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Check compares a bcrypt hash with a plaintext password.
func (h *Hasher) Check(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// DummyCheck burns a bcrypt comparison against a fixed hash. Login calls it
// when the email is unknown so the two failure paths take similar time.
func (h *Hasher) DummyCheck(plain string) {
	// any valid cost-12 hash works; the result is discarded
	const dummy = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

	_ = bcrypt.CompareHashAndPassword([]byte(dummy), []byte(plain))
}
