package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/auth"
	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/models"
)

// Scheduler runs the periodic background jobs of the api
type Scheduler struct {
	cron            *cron.Cron
	UDB             databases.UserDatabase
	AllowList       auth.AllowList
	DefaultPassword string
	Region          string
	now             func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(uDB databases.UserDatabase, allowList auth.AllowList, defaultPassword, region string) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		UDB:             uDB,
		AllowList:       allowList,
		DefaultPassword: defaultPassword,
		Region:          region,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Start provisions the authority accounts once and then hourly, so usernames added to
// the allow list can sign in without a restart of the job
func (s *Scheduler) Start() {
	s.provisionJob()

	_, err := s.cron.AddFunc("@hourly", s.provisionJob)
	if err != nil {
		zap.S().Errorw("failed to register authority provisioning job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Scheduler stopped")
}

func (s *Scheduler) provisionJob() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, err := s.ProvisionAuthorities(ctx)
	if err != nil {
		zap.S().Errorw("authority provisioning failed", "error", err)
		return
	}
	if created > 0 {
		zap.S().Infow("provisioned authority accounts", "created", created)
	}
}

// ProvisionAuthorities creates an account for every allow-listed username that has
// none yet, with the default password. It returns how many accounts were created.
func (s *Scheduler) ProvisionAuthorities(ctx context.Context) (int, error) {
	usernames := s.AllowList.Usernames()
	if len(usernames) == 0 {
		return 0, nil
	}
	sort.Strings(usernames)

	hash, err := auth.HashPassword(s.DefaultPassword)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, username := range usernames {
		email := username + "@gov.local"
		exists, err := s.UDB.Exists(ctx, username, email)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		now := s.now()
		_, err = s.UDB.InsertOne(ctx, models.User{
			Name:         "Municipal Officer - " + username,
			Username:     username,
			Email:        email,
			Address:      "Municipal Office",
			PasswordHash: hash,
			Role:         models.RoleAuthority,
			Region:       s.Region,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
