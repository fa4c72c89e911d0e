package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// ReconcilerTestSuite is the test suite for the identity reconciler
type ReconcilerTestSuite struct {
	suite.Suite
	db         *gorm.DB
	accounts   repository.AccountRepository
	reconciler *Reconciler
}

func (s *ReconcilerTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(&models.Account{})
	require.NoError(s.T(), err)

	s.db = db
	s.accounts = repository.NewAccountRepository(db)
	s.reconciler = NewReconciler(s.accounts, nil)
}

func (s *ReconcilerTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func (s *ReconcilerTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM accounts")
}

func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

// ==================== Assertion Tests ====================

func (s *ReconcilerTestSuite) TestResolveAssertion_MissingEmail() {
	_, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-1",
	})
	assert.ErrorIs(s.T(), err, apperrors.ErrMissingIdentityAttribute)
}

func (s *ReconcilerTestSuite) TestResolveAssertion_FirstExternalAccountIsAdmin() {
	// Act
	account, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-1",
		Email:     "maire@ville.fr",
		Name:      "Anne Maire",
	})

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleAdmin, account.Role)
	require.NotNil(s.T(), account.SubjectID)
	assert.Equal(s.T(), "oid-1", *account.SubjectID)
	require.NotNil(s.T(), account.LastLoginAt)
}

func (s *ReconcilerTestSuite) TestResolveAssertion_NoSubjectNeverBootstrapsAdmin() {
	// Arrange: an assertion whose claims carry no usable subject
	first, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		Email: "visiteur@ville.fr",
		Name:  "Sans Sujet",
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleUser, first.Role)
	assert.Nil(s.T(), first.SubjectID)

	// Act: the first subject-bearing assertion arrives afterwards
	second, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-1", Email: "maire@ville.fr", Name: "Anne Maire",
	})

	// Assert: the bootstrap grant was not consumed by the subjectless account
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleAdmin, second.Role)
}

func (s *ReconcilerTestSuite) TestResolveAssertion_SecondExternalAccountIsUser() {
	// Arrange
	_, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-1", Email: "maire@ville.fr", Name: "Anne Maire",
	})
	require.NoError(s.T(), err)

	// Act
	second, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-2", Email: "agent@ville.fr", Name: "Paul Agent",
	})

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.RoleUser, second.Role)
}

func (s *ReconcilerTestSuite) TestResolveAssertion_Idempotent() {
	// Arrange
	assertion := ExternalAssertion{SubjectID: "oid-1", Email: "maire@ville.fr", Name: "Anne Maire"}
	first, err := s.reconciler.ResolveAssertion(context.Background(), assertion)
	require.NoError(s.T(), err)

	// Act
	second, err := s.reconciler.ResolveAssertion(context.Background(), assertion)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.ID, second.ID)
	assert.Equal(s.T(), first.Role, second.Role)

	var count int64
	s.db.Model(&models.Account{}).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *ReconcilerTestSuite) TestResolveAssertion_LinksLegacyAccountByEmail() {
	// Arrange: a local account created before the provider rollout
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	legacy := &models.Account{
		ID:           uuid.New().String(),
		Email:        "agent@ville.fr",
		Name:         "Paul Agent",
		Role:         models.RoleAdmin,
		PasswordHash: &hash,
	}
	require.NoError(s.T(), s.accounts.Create(context.Background(), legacy))

	// Act
	resolved, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-7", Email: "agent@ville.fr", Name: "Paul Agent",
	})

	// Assert: same account, role and id preserved, subject attached
	require.NoError(s.T(), err)
	assert.Equal(s.T(), legacy.ID, resolved.ID)
	assert.Equal(s.T(), models.RoleAdmin, resolved.Role)
	require.NotNil(s.T(), resolved.SubjectID)
	assert.Equal(s.T(), "oid-7", *resolved.SubjectID)
}

func (s *ReconcilerTestSuite) TestResolveAssertion_ConflictingSubjectRejected() {
	// Arrange: email already bound to another provider identity
	_, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-1", Email: "agent@ville.fr", Name: "Paul Agent",
	})
	require.NoError(s.T(), err)

	// Act
	_, err = s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-OTHER", Email: "agent@ville.fr", Name: "Imposter",
	})

	// Assert
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
}

// ==================== Credentials Tests ====================

func (s *ReconcilerTestSuite) TestResolveCredentials_Success() {
	// Arrange
	hash, err := HashSecret("s3cret-pass")
	require.NoError(s.T(), err)
	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        "agent@ville.fr",
		Name:         "Paul Agent",
		Role:         models.RoleUser,
		PasswordHash: &hash,
	}
	require.NoError(s.T(), s.accounts.Create(context.Background(), account))

	// Act
	resolved, err := s.reconciler.ResolveCredentials(context.Background(), Credentials{
		Email:  "agent@ville.fr",
		Secret: "s3cret-pass",
	})

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), account.ID, resolved.ID)

	reloaded, err := s.accounts.GetByID(context.Background(), account.ID)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), reloaded.LastLoginAt)
}

func (s *ReconcilerTestSuite) TestResolveCredentials_WrongPassword() {
	// Arrange
	hash, err := HashSecret("s3cret-pass")
	require.NoError(s.T(), err)
	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        "agent@ville.fr",
		Name:         "Paul Agent",
		PasswordHash: &hash,
	}
	require.NoError(s.T(), s.accounts.Create(context.Background(), account))

	// Act
	_, err = s.reconciler.ResolveCredentials(context.Background(), Credentials{
		Email:  "agent@ville.fr",
		Secret: "wrong",
	})

	// Assert
	assert.ErrorIs(s.T(), err, apperrors.ErrUnauthenticated)
}

func (s *ReconcilerTestSuite) TestResolveCredentials_ProviderAccountHasNoPassword() {
	// Arrange: provider-issued accounts carry no hash
	resolved, err := s.reconciler.ResolveAssertion(context.Background(), ExternalAssertion{
		SubjectID: "oid-1", Email: "maire@ville.fr", Name: "Anne Maire",
	})
	require.NoError(s.T(), err)

	// Act
	_, err = s.reconciler.ResolveCredentials(context.Background(), Credentials{
		Email:  resolved.Email,
		Secret: "anything",
	})

	// Assert
	assert.ErrorIs(s.T(), err, apperrors.ErrUnauthenticated)
}

func (s *ReconcilerTestSuite) TestResolveCredentials_UnknownEmail() {
	_, err := s.reconciler.ResolveCredentials(context.Background(), Credentials{
		Email:  "nobody@ville.fr",
		Secret: "anything",
	})
	assert.ErrorIs(s.T(), err, apperrors.ErrUnauthenticated)
}
