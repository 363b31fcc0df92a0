package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/models"
)

// SeedFile is the YAML layout read by the seed command
type SeedFile struct {
	Complaints []SeedComplaint `yaml:"complaints"`
}

// SeedComplaint is one complaint of a seed file. Status defaults to unsolved and the
// timestamps to the time of seeding.
type SeedComplaint struct {
	Title           string          `yaml:"title"`
	Description     string          `yaml:"description"`
	Category        models.Category `yaml:"category"`
	Status          models.Status   `yaml:"status"`
	Location        string          `yaml:"location"`
	Region          string          `yaml:"region"`
	Latitude        float64         `yaml:"latitude"`
	Longitude       float64         `yaml:"longitude"`
	Images          []string        `yaml:"images"`
	ProofImage      string          `yaml:"proofImage"`
	UserID          string          `yaml:"userId"`
	UserName        string          `yaml:"userName"`
	UserAvatar      string          `yaml:"userAvatar"`
	Likes           int64           `yaml:"likes"`
	FacingSameIssue int64           `yaml:"facingSameIssue"`
	CreatedAt       *time.Time      `yaml:"createdAt"`
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert complaints from a YAML file into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the complaints to insert")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSeed(cmd *cobra.Command, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "failed to open seed file")
	}
	defer f.Close()

	conf := config.New()
	client, err := databases.NewClient(conf)
	if err != nil {
		return errors.Wrap(err, "failed to create database client")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	if err = client.Connect(ctx); err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	cdb := databases.NewComplaintDatabase(databases.NewDatabase(conf, client))
	inserted, err := Seed(ctx, cdb, f, time.Now().UTC())
	if err != nil {
		return err
	}
	cmd.Printf("inserted %d complaints\n", inserted)
	return nil
}

// Seed inserts the complaints read from r when the collection holds none, and returns
// how many were inserted
func Seed(ctx context.Context, db databases.ComplaintDatabase, r io.Reader, now time.Time) (int, error) {
	count, err := db.CountDocuments(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		zap.S().Infow("complaints already present, nothing to seed", "count", count)
		return 0, nil
	}

	var file SeedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return 0, errors.Wrap(err, "failed to decode seed file")
	}

	complaints := make([]models.Complaint, 0, len(file.Complaints))
	for i, s := range file.Complaints {
		c, err := s.complaint(now)
		if err != nil {
			return 0, errors.Wrapf(err, "complaint %d (%q)", i+1, s.Title)
		}
		complaints = append(complaints, c)
	}

	for _, c := range complaints {
		if _, err := db.InsertOne(ctx, c); err != nil {
			return 0, err
		}
	}
	zap.S().Infow("seeded complaints", "count", len(complaints))
	return len(complaints), nil
}

func (s SeedComplaint) complaint(now time.Time) (models.Complaint, error) {
	if err := models.Validate(models.CreateComplaintRequest{
		Title:       s.Title,
		Description: s.Description,
		Category:    s.Category,
		Location:    s.Location,
		Region:      s.Region,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		Images:      s.Images,
	}); err != nil {
		return models.Complaint{}, err
	}
	status := s.Status
	if status == "" {
		status = models.StatusUnsolved
	}
	if !status.Valid() {
		return models.Complaint{}, errors.Errorf("unknown status %q", status)
	}
	if s.Likes < 0 || s.FacingSameIssue < 0 {
		return models.Complaint{}, errors.New("counters must not be negative")
	}

	created := now
	if s.CreatedAt != nil {
		created = s.CreatedAt.UTC()
	}
	c := models.Complaint{
		Title:           strings.TrimSpace(s.Title),
		Description:     strings.TrimSpace(s.Description),
		Category:        s.Category,
		Status:          status,
		Location:        s.Location,
		Region:          s.Region,
		Latitude:        s.Latitude,
		Longitude:       s.Longitude,
		Images:          s.Images,
		AuthorID:        s.UserID,
		AuthorName:      s.UserName,
		AuthorAvatar:    s.UserAvatar,
		Likes:           s.Likes,
		FacingSameIssue: s.FacingSameIssue,
		Comments:        []models.Comment{},
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	if status == models.StatusSolved || status == models.StatusVerified {
		c.ProofImage = s.ProofImage
		c.ResolvedAt = &created
	}
	if status == models.StatusVerified {
		c.VerifiedAt = &created
	}
	return c, nil
}
