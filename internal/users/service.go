// Package users owns account management: registration, authentication,
// sessions, and the administrative account edits guarded by the
// last-admin and self-block invariants.
package users

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/authz"
	"github.com/mwielgus/scribe/internal/models"
)

var (
	// ErrInvalidLogin is returned when the email or password is wrong.
	ErrInvalidLogin = errors.New("invalid email or password")

	// ErrAccountBlocked is returned when a blocked account tries to log in.
	ErrAccountBlocked = errors.New("account is blocked")
)

// Service manages user accounts.
type Service struct {
	db *gorm.DB

	// adminMu serializes every role/block mutation. Two concurrent edits
	// could otherwise both read "2 admins", both demote one, and leave
	// zero admins. The safeguard check and the write must happen inside
	// the same critical section.
	adminMu sync.Mutex
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AccountUpdate is the admin edit form for a user account.
type AccountUpdate struct {
	Roles         []string
	Blocked       bool
	PlainPassword string
}

// GetByID loads one account.
func (s *Service) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns one page of accounts ordered by id.
func (s *Service) List(page, pageSize int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.User
	err := s.db.Order("id").Limit(pageSize).Offset((page - 1) * pageSize).Find(&list).Error
	return list, total, err
}

// CountAdmins reports how many accounts currently hold the admin role.
func (s *Service) CountAdmins() (int64, error) {
	return countAdmins(s.db)
}

// UpdateAccount applies an admin edit to the given account on behalf of
// actor. Both safeguards are evaluated against a snapshot taken inside
// the critical section, so a concurrent demotion cannot slip past the
// last-admin check. On rejection nothing is written.
func (s *Service) UpdateAccount(actor *models.User, accountID uint, update AccountUpdate) (*models.User, error) {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	var updated *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var account models.User
		if err := tx.First(&account, accountID).Error; err != nil {
			return err
		}

		if err := authz.CheckBlockChange(&account, actor, update.Blocked); err != nil {
			return err
		}

		adminCount, err := countAdmins(tx)
		if err != nil {
			return err
		}
		rolesAfter := normalizeRoles(update.Roles)
		if err := authz.CheckRoleChange(account.EffectiveRoles(), rolesAfter, adminCount); err != nil {
			return err
		}

		account.Roles = rolesAfter
		account.Blocked = update.Blocked
		if update.PlainPassword != "" {
			hash, err := HashPassword(update.PlainPassword)
			if err != nil {
				return err
			}
			account.Password = hash
		}

		if err := tx.Save(&account).Error; err != nil {
			return err
		}
		updated = &account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Register creates a new account holding only the base role.
func (s *Service) Register(email, nickname, plainPassword string) (*models.User, error) {
	hash, err := HashPassword(plainPassword)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Email:    email,
		Nickname: nickname,
		Password: hash,
		Roles:    models.RoleList{models.RoleUser},
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks credentials. Blocked accounts are refused before
// the password is even compared.
func (s *Service) Authenticate(email, plainPassword string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}
	if user.Blocked {
		return nil, ErrAccountBlocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plainPassword)); err != nil {
		return nil, ErrInvalidLogin
	}
	return &user, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// countAdmins relies on Roles being stored as a comma-joined list and on
// ROLE_ADMIN not being a substring of any other role name.
func countAdmins(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.User{}).
		Where("roles LIKE ?", "%"+models.RoleAdmin+"%").
		Count(&n).Error
	return n, err
}

// normalizeRoles guarantees the base role is always stored, mirroring
// the account entity's setter in the original system.
func normalizeRoles(roles []string) models.RoleList {
	out := make(models.RoleList, 0, len(roles)+1)
	seen := make(map[string]bool, len(roles)+1)
	for _, r := range roles {
		if r != "" && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	if !seen[models.RoleUser] {
		out = append(out, models.RoleUser)
	}
	return out
}
