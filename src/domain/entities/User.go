package entities

import (
	"fmt"

	"cineasts/src/domain"
	"cineasts/src/helper/validation"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	NodeID        int64                 `json:"node_id,omitempty"`
	Login         string                `json:"login" graph:"pk,property:login" validate:"required"`
	Name          string                `json:"name" graph:"property:name" validate:"required"`
	Password      string                `json:"-" graph:"property:password"`
	SecurityRoles []domain.SecurityRole `json:"roles" graph:"property:roles" validate:"dive,oneof=ROLE_ADMIN ROLE_USER"`
	Ratings       []Rating              `json:"ratings,omitempty"`
	Friends       []string              `json:"friends,omitempty"`
}

// NewUser guarda apenas o hash bcrypt da senha.
func NewUser(login, name, password string, roles ...domain.SecurityRole) (*User, error) {
	if err := validation.ValidateVar("password", password, "required"); err != nil {
		return nil, fmt.Errorf("NewUser - %w", err)
	}

	user := &User{Login: login, Name: name, SecurityRoles: roles}
	if err := validation.ValidateStruct(user); err != nil {
		return nil, fmt.Errorf("NewUser - %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("NewUser - failed to hash password: %w", err)
	}
	user.Password = string(hash)

	return user, nil
}

func (u *User) Label() domain.Label {
	return domain.LabelUser
}

func (u *User) Key() string {
	return u.Login
}

func (u *User) GraphID() int64 {
	return u.NodeID
}

func (u *User) SetGraphID(id int64) {
	u.NodeID = id
}

func (u *User) PasswordMatches(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (u *User) HasRole(role domain.SecurityRole) bool {
	for _, r := range u.SecurityRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Rate registra a avaliação no usuário e no filme. Uma avaliação igual
// (mesmas estrelas e comentário) não é duplicada.
func (u *User) Rate(movie *Movie, stars int, comment string) (Rating, bool, error) {
	rating, err := NewRating(u.Login, movie.ID, stars, comment)
	if err != nil {
		return Rating{}, false, fmt.Errorf("User.Rate - %w", err)
	}

	var added bool
	u.Ratings, added = addUnique(u.Ratings, rating, SameRating)
	movie.Ratings, _ = addUnique(movie.Ratings, rating, SameRating)
	return rating, added, nil
}

func (u *User) RemoveRating(movie *Movie, stars int, comment string) (Rating, bool) {
	target := Rating{Login: u.Login, MovieID: movie.ID, Stars: stars, Comment: comment}
	match := func(r Rating) bool { return SameRating(r, target) }

	var removed []Rating
	u.Ratings, removed = removeMatching(u.Ratings, match)
	movie.Ratings, _ = removeMatching(movie.Ratings, match)
	if len(removed) == 0 {
		return Rating{}, false
	}
	return removed[0], true
}

func (u *User) RatingFor(movieID string) (Rating, bool) {
	for _, r := range u.Ratings {
		if r.MovieID == movieID {
			return r, true
		}
	}
	return Rating{}, false
}

// Befriend é simétrico: os dois usuários passam a se listar como amigos.
func (u *User) Befriend(other *User) (bool, error) {
	if u.Login == other.Login {
		return false, fmt.Errorf("User.Befriend - %w: a user cannot befriend itself", domain.ErrValidation)
	}

	var added bool
	u.Friends, added = addKey(u.Friends, other.Login)
	other.Friends, _ = addKey(other.Friends, u.Login)
	return added, nil
}

func (u *User) Unfriend(other *User) bool {
	var removed bool
	u.Friends, removed = removeKey(u.Friends, other.Login)
	other.Friends, _ = removeKey(other.Friends, u.Login)
	return removed
}

func (u *User) IsFriendOf(login string) bool {
	return containsKey(u.Friends, login)
}

func (u User) String() string {
	return fmt.Sprintf("%s (%s)", u.Name, u.Login)
}
