package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/model"
	"storefront/internal/store"
	"storefront/internal/validate"
	"storefront/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials covers unknown email, inactive account and wrong password alike
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserInput struct {
	FullName      string
	EmailAddress  string
	ContactNumber string
	Address       string
	UserType      string
	Password      string
	ImagePath     string
}

type UserPatch struct {
	FullName      *string
	EmailAddress  *string
	ContactNumber *string
	Address       *string
	UserType      *string
	Password      *string
	ImagePath     *string
	Active        *bool
}

func checkEmail(email string) error {
	if at := strings.Index(email, "@"); at <= 0 || at == len(email)-1 {
		return apperr.Validation("emailAddress %q is malformed", email)
	}
	return nil
}

// emailTaken reports whether another active user already holds email
func emailTaken(users []model.User, email, exceptID string) bool {
	return slices.ContainsFunc(users, func(u model.User) bool {
		return u.Active && u.UserID != exceptID && sameName(u.EmailAddress, email)
	})
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.passwordCost)
	if err != nil {
		return "", apperr.Validation("password cannot be hashed: %v", err)
	}
	return string(hash), nil
}

// RegisterUser creates an active account with a bcrypt password hash
func (s *Service) RegisterUser(ctx context.Context, in UserInput) (model.User, error) {
	log := logger.FromContext(ctx)
	if err := required("fullName", in.FullName, "emailAddress", in.EmailAddress, "password", in.Password); err != nil {
		return model.User{}, err
	}
	if err := checkEmail(in.EmailAddress); err != nil {
		return model.User{}, err
	}
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return model.User{}, err
	}
	userType := in.UserType
	if userType == "" {
		userType = model.UserTypeCustomer
	}

	var user model.User
	err = s.store.Update(ctx, []string{CollectionUsers}, func(tx *store.Tx) error {
		users, err := s.users.Get(tx)
		if err != nil {
			return err
		}
		if emailTaken(users, in.EmailAddress, "") {
			return apperr.Integrity("emailAddress %s is already registered", in.EmailAddress)
		}
		id, err := nextID(s.ids, validate.Keys(users, userKey), CollectionUsers)
		if err != nil {
			return err
		}
		user = model.User{
			UserID:           id,
			FullName:         in.FullName,
			EmailAddress:     in.EmailAddress,
			ContactNumber:    in.ContactNumber,
			Address:          in.Address,
			UserType:         userType,
			PasswordHash:     hash,
			Active:           true,
			ImagePath:        in.ImagePath,
			RegistrationDate: s.clock(),
		}
		return s.users.Put(tx, append(users, user))
	})
	if err != nil {
		log.Warn("Failed to register user", zap.String("email", in.EmailAddress), zap.Error(err))
		return model.User{}, err
	}

	s.metrics.RecordOperation("user", "create")
	log.Info("User registered",
		zap.String("user_id", user.UserID),
		zap.String("user_type", user.UserType))
	return user.Public(), nil
}

// Authenticate checks email and password against the active account
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return model.User{}, err
	}
	i := slices.IndexFunc(users, func(u model.User) bool { return u.Active && sameName(u.EmailAddress, email) })
	if i < 0 {
		return model.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(password)); err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return users[i].Public(), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return model.User{}, err
	}
	i := slices.IndexFunc(users, func(u model.User) bool { return u.UserID == id })
	if i < 0 {
		return model.User{}, apperr.NotFound("user %s not found", id)
	}
	return users[i].Public(), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

// UpdateUser merges patch, rehashing a new password and keeping active emails unique
func (s *Service) UpdateUser(ctx context.Context, id string, patch UserPatch) (model.User, error) {
	log := logger.FromContext(ctx)
	if patch.FullName != nil {
		if err := required("fullName", *patch.FullName); err != nil {
			return model.User{}, err
		}
	}
	if patch.EmailAddress != nil {
		if err := checkEmail(*patch.EmailAddress); err != nil {
			return model.User{}, err
		}
	}
	var hash string
	if patch.Password != nil {
		if err := required("password", *patch.Password); err != nil {
			return model.User{}, err
		}
		var err error
		if hash, err = s.hashPassword(*patch.Password); err != nil {
			return model.User{}, err
		}
	}

	var (
		user     model.User
		oldImage string
	)
	err := s.store.Update(ctx, []string{CollectionUsers}, func(tx *store.Tx) error {
		users, err := s.users.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(users, func(u model.User) bool { return u.UserID == id })
		if i < 0 {
			return apperr.NotFound("user %s not found", id)
		}
		old := users[i]
		u := &users[i]
		if patch.FullName != nil {
			u.FullName = *patch.FullName
		}
		if patch.EmailAddress != nil {
			u.EmailAddress = *patch.EmailAddress
		}
		if patch.ContactNumber != nil {
			u.ContactNumber = *patch.ContactNumber
		}
		if patch.Address != nil {
			u.Address = *patch.Address
		}
		if patch.UserType != nil {
			u.UserType = *patch.UserType
		}
		if patch.ImagePath != nil {
			u.ImagePath = *patch.ImagePath
		}
		if patch.Active != nil {
			u.Active = *patch.Active
		}
		if hash != "" {
			u.PasswordHash = hash
		}

		if u.Active && emailTaken(users, u.EmailAddress, id) {
			return apperr.Integrity("emailAddress %s is already registered", u.EmailAddress)
		}
		if u.ImagePath != old.ImagePath {
			oldImage = old.ImagePath
		}
		user = *u
		return s.users.Put(tx, users)
	})
	if err != nil {
		log.Warn("Failed to update user", zap.String("user_id", id), zap.Error(err))
		return model.User{}, err
	}

	s.removeImage(ctx, oldImage)
	s.metrics.RecordOperation("user", "update")
	log.Info("User updated", zap.String("user_id", id))
	return user.Public(), nil
}

// DeleteUser removes an account that owns no products
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	var removed model.User
	err := s.store.Update(ctx, []string{CollectionUsers, CollectionProducts}, func(tx *store.Tx) error {
		users, err := s.users.Get(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(users, func(u model.User) bool { return u.UserID == id })
		if i < 0 {
			return apperr.NotFound("user %s not found", id)
		}
		products, err := s.products.Get(tx)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(products, func(p model.Product) bool { return p.UserID == id }) {
			return apperr.Integrity("user %s owns products", id)
		}
		removed = users[i]
		return s.users.Put(tx, slices.Delete(users, i, i+1))
	})
	if err != nil {
		log.Warn("Failed to delete user", zap.String("user_id", id), zap.Error(err))
		return err
	}

	s.removeImage(ctx, removed.ImagePath)
	s.metrics.RecordOperation("user", "delete")
	log.Info("User deleted", zap.String("user_id", id))
	return nil
}
