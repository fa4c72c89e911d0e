package services

import (
	"context"
	"testing"
	"time"

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

// ArchivalServiceTestSuite is the test suite for ArchivalService
type ArchivalServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	serviceRepo repository.ServiceRepository
	mails       repository.MailRepository
	svc         ArchivalService

	actor   *models.Account
	service *models.Service
}

func (s *ArchivalServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(&models.Service{}, &models.Mail{})
	require.NoError(s.T(), err)

	s.db = db
	s.serviceRepo = repository.NewServiceRepository(db)
	s.mails = repository.NewMailRepository(db)
	s.svc = NewArchivalService(s.serviceRepo, s.mails, nil)
}

func (s *ArchivalServiceTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func (s *ArchivalServiceTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM mails")
	s.db.Exec("DELETE FROM services")

	s.actor = &models.Account{ID: uuid.New().String(), Name: "Paul Agent"}
	s.service = &models.Service{ID: uuid.New().String(), Name: "Urbanisme", CreatedAt: time.Now()}
	require.NoError(s.T(), s.serviceRepo.Create(context.Background(), s.service))
}

func (s *ArchivalServiceTestSuite) seedMail(reference string, serviceID string, status models.MailStatus) *models.Mail {
	mail := &models.Mail{
		ID:                uuid.New().String(),
		Reference:         reference,
		Direction:         models.DirectionIncoming,
		Subject:           "Demande",
		CorrespondentID:   uuid.New().String(),
		CorrespondentName: "Marie Dupont",
		ServiceID:         serviceID,
		ServiceName:       "Urbanisme",
		Status:            status,
		Workflow:          []models.WorkflowEntry{{Status: status, UserID: s.actor.ID, UserName: s.actor.Name, Timestamp: time.Now()}},
		Attachments:       []models.Attachment{},
		Children:          []models.MailSummary{},
		Channel:           models.ChannelLetter,
		CreatedAt:         time.Now(),
	}
	require.NoError(s.T(), s.mails.Create(context.Background(), mail))
	return mail
}

func TestArchivalServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ArchivalServiceTestSuite))
}

// ==================== Archive Tests ====================

func (s *ArchivalServiceTestSuite) TestArchive_CascadesToOpenMails() {
	// Arrange: two open mails, one already archived
	open1 := s.seedMail("MAIL-2025-00001", s.service.ID, models.StatusReceived)
	open2 := s.seedMail("MAIL-2025-00002", s.service.ID, models.StatusInProgress)
	s.seedMail("MAIL-2025-00003", s.service.ID, models.StatusArchived)

	// Act
	count, err := s.svc.Archive(context.Background(), s.service.ID, s.actor)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), count)

	for _, id := range []string{open1.ID, open2.ID} {
		mail, err := s.mails.GetByID(context.Background(), id)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), models.StatusArchived, mail.Status)
	}

	service, err := s.serviceRepo.GetByID(context.Background(), s.service.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), service.Archived)
	require.NotNil(s.T(), service.ArchivedBy)
	assert.Equal(s.T(), s.actor.ID, *service.ArchivedBy)
	assert.NotNil(s.T(), service.ArchivedAt)
}

func (s *ArchivalServiceTestSuite) TestArchive_CascadeLeavesWorkflowUntouched() {
	// Arrange
	mail := s.seedMail("MAIL-2025-00001", s.service.ID, models.StatusReceived)

	// Act
	_, err := s.svc.Archive(context.Background(), s.service.ID, s.actor)
	require.NoError(s.T(), err)

	// Assert: the bulk move records no per-mail workflow entry
	reloaded, err := s.mails.GetByID(context.Background(), mail.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), reloaded.Workflow, 1)
}

func (s *ArchivalServiceTestSuite) TestArchive_OtherServicesUnaffected() {
	// Arrange
	other := &models.Service{ID: uuid.New().String(), Name: "État civil", CreatedAt: time.Now()}
	require.NoError(s.T(), s.serviceRepo.Create(context.Background(), other))
	untouched := s.seedMail("MAIL-2025-00001", other.ID, models.StatusReceived)
	s.seedMail("MAIL-2025-00002", s.service.ID, models.StatusReceived)

	// Act
	count, err := s.svc.Archive(context.Background(), s.service.ID, s.actor)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), count)

	mail, err := s.mails.GetByID(context.Background(), untouched.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusReceived, mail.Status)
}

func (s *ArchivalServiceTestSuite) TestArchive_AlreadyArchivedConflicts() {
	_, err := s.svc.Archive(context.Background(), s.service.ID, s.actor)
	require.NoError(s.T(), err)

	_, err = s.svc.Archive(context.Background(), s.service.ID, s.actor)
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
}

func (s *ArchivalServiceTestSuite) TestArchive_UnknownServiceNotFound() {
	_, err := s.svc.Archive(context.Background(), uuid.New().String(), s.actor)
	assert.ErrorIs(s.T(), err, apperrors.ErrNotFound)
}

// ==================== Restore Tests ====================

func (s *ArchivalServiceTestSuite) TestRestore_ClearsServiceButKeepsMailsArchived() {
	// Arrange
	mail := s.seedMail("MAIL-2025-00001", s.service.ID, models.StatusReceived)
	_, err := s.svc.Archive(context.Background(), s.service.ID, s.actor)
	require.NoError(s.T(), err)

	// Act
	err = s.svc.Restore(context.Background(), s.service.ID)

	// Assert: the service comes back, the cascaded mails do not
	require.NoError(s.T(), err)
	service, err := s.serviceRepo.GetByID(context.Background(), s.service.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), service.Archived)
	assert.Nil(s.T(), service.ArchivedAt)
	assert.Nil(s.T(), service.ArchivedBy)

	reloaded, err := s.mails.GetByID(context.Background(), mail.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusArchived, reloaded.Status)
}

func (s *ArchivalServiceTestSuite) TestRestore_NotArchivedConflicts() {
	err := s.svc.Restore(context.Background(), s.service.ID)
	assert.ErrorIs(s.T(), err, apperrors.ErrConflict)
}
