package services

import (
	"context"
	"strings"
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

const importHeader = "nom,prenom,telephone_fixe,telephone_mobile,adresse_mail,adresse_postale,titre_message,type,statut\n"

// ImportServiceTestSuite is the test suite for ImportService
type ImportServiceTestSuite struct {
	suite.Suite
	db             *gorm.DB
	mails          repository.MailRepository
	correspondents repository.CorrespondentRepository
	serviceRepo    repository.ServiceRepository
	svc            ImportService

	actor *models.Account
}

func (s *ImportServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(&models.Service{}, &models.Correspondent{}, &models.Mail{})
	require.NoError(s.T(), err)

	s.db = db
	s.mails = repository.NewMailRepository(db)
	s.correspondents = repository.NewCorrespondentRepository(db)
	s.serviceRepo = repository.NewServiceRepository(db)
	s.svc = NewImportService(s.mails, s.correspondents, s.serviceRepo,
		NewReferenceGenerator(s.mails), nil)
}

func (s *ImportServiceTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

func (s *ImportServiceTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM mails")
	s.db.Exec("DELETE FROM services")
	s.db.Exec("DELETE FROM correspondents")

	s.actor = &models.Account{ID: uuid.New().String(), Name: "Paul Agent"}
}

func (s *ImportServiceTestSuite) seedService(name string, createdAt time.Time) *models.Service {
	service := &models.Service{ID: uuid.New().String(), Name: name, CreatedAt: createdAt}
	require.NoError(s.T(), s.serviceRepo.Create(context.Background(), service))
	return service
}

func TestImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceTestSuite))
}

// ==================== Import Tests ====================

func (s *ImportServiceTestSuite) TestImportCSV_CreatesCorrespondentAndMail() {
	// Arrange
	service := s.seedService("Urbanisme", time.Now())
	csvData := importHeader +
		"Dupont,Marie,0123456789,0612345678,marie@example.fr,12 rue des Lilas,Demande de permis,entrant,en_cours\n"

	// Act
	stats, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, stats.CorrespondentsCreated)
	assert.Equal(s.T(), 1, stats.MailsCreated)
	assert.Empty(s.T(), stats.Errors)

	correspondent, err := s.correspondents.GetByName(context.Background(), "Marie Dupont")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), correspondent.Phone)
	assert.Equal(s.T(), "0612345678", *correspondent.Phone, "mobile number wins over the fixed line")
	require.NotNil(s.T(), correspondent.Email)
	assert.Equal(s.T(), "marie@example.fr", *correspondent.Email)

	mails, err := s.mails.List(context.Background(), repository.MailFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), mails, 1)
	mail := mails[0]
	assert.Equal(s.T(), "Demande de permis", mail.Subject)
	assert.Equal(s.T(), models.DirectionIncoming, mail.Direction)
	assert.Equal(s.T(), models.StatusReceived, mail.Status)
	assert.Equal(s.T(), service.Name, mail.ServiceName)
	assert.Equal(s.T(), models.ChannelLetter, mail.Channel)
	require.Len(s.T(), mail.Workflow, 1)
	require.NotNil(s.T(), mail.Workflow[0].Comment)
	assert.Equal(s.T(), "CSV import", *mail.Workflow[0].Comment)
}

func (s *ImportServiceTestSuite) TestImportCSV_ClassifiesTypeAndStatut() {
	// Arrange
	s.seedService("Urbanisme", time.Now())
	csvData := importHeader +
		"Durand,,,,,,Réponse au permis,sortant,archivé\n" +
		"Martin,,,,,,Réclamation voirie,entrant,quelconque\n"

	// Act
	stats, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, stats.MailsCreated)

	mails, err := s.mails.List(context.Background(), repository.MailFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), mails, 2)

	bySubject := make(map[string]models.Mail, len(mails))
	for _, m := range mails {
		bySubject[m.Subject] = m
	}
	outgoing := bySubject["Réponse au permis"]
	assert.Equal(s.T(), models.DirectionOutgoing, outgoing.Direction)
	assert.Equal(s.T(), models.StatusArchived, outgoing.Status)

	incoming := bySubject["Réclamation voirie"]
	assert.Equal(s.T(), models.DirectionIncoming, incoming.Direction)
	assert.Equal(s.T(), models.StatusReceived, incoming.Status)
}

func (s *ImportServiceTestSuite) TestImportCSV_ReusesCorrespondentFillingOnlyEmptyFields() {
	// Arrange: an existing correspondent with an email but no phone
	s.seedService("Urbanisme", time.Now())
	email := "marie@ville.fr"
	existing := &models.Correspondent{
		ID:        uuid.New().String(),
		Name:      "Marie Dupont",
		Email:     &email,
		CreatedAt: time.Now(),
	}
	require.NoError(s.T(), s.correspondents.Create(context.Background(), existing))

	csvData := importHeader +
		"Dupont,Marie,,0612345678,autre@example.fr,,Relance permis,entrant,\n"

	// Act
	stats, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)

	// Assert: phone filled, existing email kept
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, stats.CorrespondentsCreated)
	assert.Equal(s.T(), 1, stats.CorrespondentsUpdated)

	reloaded, err := s.correspondents.GetByID(context.Background(), existing.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), reloaded.Phone)
	assert.Equal(s.T(), "0612345678", *reloaded.Phone)
	assert.Equal(s.T(), "marie@ville.fr", *reloaded.Email)
}

func (s *ImportServiceTestSuite) TestImportCSV_ReuseWithoutNewDataCountsNothing() {
	// Arrange
	s.seedService("Urbanisme", time.Now())
	existing := &models.Correspondent{
		ID:        uuid.New().String(),
		Name:      "Marie Dupont",
		CreatedAt: time.Now(),
	}
	require.NoError(s.T(), s.correspondents.Create(context.Background(), existing))

	csvData := importHeader + "Dupont,Marie,,,,,Relance permis,entrant,\n"

	// Act
	stats, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, stats.CorrespondentsCreated)
	assert.Equal(s.T(), 0, stats.CorrespondentsUpdated)
	assert.Equal(s.T(), 1, stats.MailsCreated)
}

func (s *ImportServiceTestSuite) TestImportCSV_RejectedRowsDoNotAbortTheRun() {
	// Arrange: row 1 lacks titre_message, row 2 lacks nom, row 3 is valid
	s.seedService("Urbanisme", time.Now())
	csvData := importHeader +
		"Dupont,Marie,,,,,,entrant,\n" +
		",Pierre,,,,,Demande acte,entrant,\n" +
		"Martin,Luc,,,,,Réclamation voirie,entrant,\n"

	// Act
	stats, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)

	// Assert
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, stats.MailsCreated)
	require.Len(s.T(), stats.Errors, 2)
	assert.Contains(s.T(), stats.Errors[0], "row 1")
	assert.Contains(s.T(), stats.Errors[1], "row 2")
}

func (s *ImportServiceTestSuite) TestImportCSV_RoutesToOldestService() {
	// Arrange
	oldest := s.seedService("Secrétariat", time.Now().Add(-48*time.Hour))
	s.seedService("Urbanisme", time.Now())

	csvData := importHeader + "Dupont,Marie,,,,,Demande,entrant,\n"

	// Act
	_, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)

	// Assert
	require.NoError(s.T(), err)
	mails, err := s.mails.List(context.Background(), repository.MailFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), mails, 1)
	assert.Equal(s.T(), oldest.ID, mails[0].ServiceID)
}

func (s *ImportServiceTestSuite) TestImportCSV_NoServiceAbortsRun() {
	csvData := importHeader + "Dupont,Marie,,,,,Demande,entrant,\n"

	_, err := s.svc.ImportCSV(context.Background(), strings.NewReader(csvData), s.actor)
	assert.ErrorIs(s.T(), err, apperrors.ErrValidation)
}
