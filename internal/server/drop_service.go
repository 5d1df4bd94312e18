package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deaddrop/internal/api"
	"deaddrop/internal/blobstore"
	"deaddrop/internal/config"
	"deaddrop/internal/envelope"
	"deaddrop/internal/models"
	"deaddrop/internal/stego"
	"deaddrop/internal/store"
)

// Lifecycle errors. Handlers map these onto HTTP statuses; the service
// wraps them in apiError values so the mapping travels with the error.
var (
	ErrNotFound        = errors.New("drop not found")
	ErrExpired         = errors.New("drop has expired")
	ErrBurned          = errors.New("drop has been burned")
	ErrRetrievalLimit  = errors.New("retrieval limit reached")
	ErrInvalidPassword = errors.New("invalid password")
)

// Accessibility reasons reported on metadata checks.
const (
	ReasonNotFound       = "NotFound"
	ReasonExpired        = "Expired"
	ReasonBurned         = "Burned"
	ReasonRetrievalLimit = "RetrievalLimitExceeded"
)

const createCodenameRetries = 3

// CreateParams carries everything needed to create a drop.
type CreateParams struct {
	Password         string
	PasswordHint     string
	TTLSeconds       int64
	MaxRetrievals    int
	BurnAfterReading bool
	BitsPerChannel   int
	Filename         string
	MimeType         string
	Tags             []string
	Payload          []byte
	Carrier          []byte
}

// RequestMeta identifies the caller for the audit trail.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Accessibility is the outcome of a lifecycle check.
type Accessibility struct {
	Accessible bool
	Reason     string
	Drop       *models.DeadDrop
}

// RetrieveResult is a successful retrieval: the decrypted payload plus
// the drop's post-retrieval state.
type RetrieveResult struct {
	Drop    *models.DeadDrop
	Payload []byte
	Burned  bool
}

// DropService owns the drop lifecycle: creation, retrieval, burning
// and deletion. All check-then-act sequences on a single drop run
// under that drop's keyed mutex.
type DropService struct {
	store     store.DropStore
	blobs     blobstore.CarrierStore
	cfg       config.DropConfig
	logger    *slog.Logger
	locks     *keyedMutex
	scheduler *deleteScheduler
	burnGrace time.Duration
	now       func() time.Time
}

// NewDropService constructs a DropService.
func NewDropService(dropStore store.DropStore, blobs blobstore.CarrierStore, cfg config.DropConfig, logger *slog.Logger) *DropService {
	if logger == nil {
		logger = slog.Default()
	}
	grace := time.Duration(cfg.BurnGraceSeconds) * time.Second
	if grace <= 0 {
		grace = time.Duration(config.DefaultBurnGraceSeconds) * time.Second
	}
	return &DropService{
		store:     dropStore,
		blobs:     blobs,
		cfg:       cfg,
		logger:    logger,
		locks:     newKeyedMutex(),
		scheduler: newDeleteScheduler(),
		burnGrace: grace,
		now:       time.Now,
	}
}

// Close stops pending burn timers. Drops with lost timers are picked
// up by the next retention sweep.
func (s *DropService) Close() {
	s.scheduler.Stop()
}

// Create validates parameters, seals the payload, embeds it into a
// carrier image and persists the drop.
func (s *DropService) Create(ctx context.Context, params CreateParams, meta RequestMeta) (*models.DeadDrop, api.StegoStats, error) {
	var stats api.StegoStats

	if err := envelope.CheckPassword([]byte(params.Password)); err != nil {
		return nil, stats, badRequestCode(err, ErrCodePasswordTooShort)
	}
	if len(params.Payload) == 0 {
		return nil, stats, badRequestCode(fmt.Errorf("payload file is required"), ErrCodeMissingRequired)
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(params.Payload)) > s.cfg.MaxUploadBytes {
		return nil, stats, badRequestCode(fmt.Errorf("payload exceeds upload limit of %d bytes", s.cfg.MaxUploadBytes), ErrCodeRequestTooLarge)
	}

	ttl := params.TTLSeconds
	if ttl == 0 {
		ttl = s.cfg.DefaultTTLSeconds
	}
	if ttl <= 0 {
		return nil, stats, badRequestCode(fmt.Errorf("ttl_seconds must be positive"), ErrCodeInvalidTTL)
	}
	if s.cfg.MaxTTLSeconds > 0 && ttl > s.cfg.MaxTTLSeconds {
		return nil, stats, badRequestCode(fmt.Errorf("ttl_seconds exceeds maximum of %d", s.cfg.MaxTTLSeconds), ErrCodeInvalidTTL)
	}

	if params.MaxRetrievals < 0 {
		return nil, stats, badRequestCode(fmt.Errorf("max_retrievals must not be negative"), ErrCodeInvalidArgument)
	}

	bitsPerChannel := params.BitsPerChannel
	if bitsPerChannel == 0 {
		bitsPerChannel = s.cfg.DefaultBitsPerChannel
	}
	if bitsPerChannel < stego.MinBitsPerChannel || bitsPerChannel > stego.MaxBitsPerChannel {
		return nil, stats, badRequestCode(
			fmt.Errorf("bits_per_channel must be between %d and %d", stego.MinBitsPerChannel, stego.MaxBitsPerChannel),
			ErrCodeInvalidBitDepth)
	}

	blob, err := envelope.Seal(params.Payload, []byte(params.Password))
	if err != nil {
		return nil, stats, internalError(err)
	}

	carrier, carrierType, err := s.prepareCarrier(params.Carrier, len(blob), bitsPerChannel)
	if err != nil {
		return nil, stats, err
	}

	embedded, err := stego.Embed(carrier, blob, bitsPerChannel)
	if err != nil {
		return nil, stats, mapStegoError(err)
	}
	encoded, err := stego.EncodePNG(embedded)
	if err != nil {
		return nil, stats, stegoFailure(err)
	}

	carrierKey, err := s.blobs.Put(ctx, encoded)
	if err != nil {
		return nil, stats, internalError(fmt.Errorf("store carrier: %w", err))
	}

	now := s.now().UTC()
	width := embedded.Rect.Dx()
	height := embedded.Rect.Dy()

	drop := &models.DeadDrop{
		ID:               uuid.NewString(),
		CreatedAt:        now,
		TTLSeconds:       ttl,
		ExpiresAt:        now.Add(time.Duration(ttl) * time.Second),
		Password:         params.Password,
		PasswordHint:     params.PasswordHint,
		MaxRetrievals:    params.MaxRetrievals,
		BurnAfterReading: params.BurnAfterReading,
		Status:           models.StatusActive,
		CarrierKey:       carrierKey,
		CarrierType:      carrierType,
		CarrierWidth:     width,
		CarrierHeight:    height,
		BitsPerChannel:   bitsPerChannel,
		PayloadSize:      int64(len(params.Payload)),
		Encrypted:        true,
		OriginalFilename: params.Filename,
		MimeType:         params.MimeType,
		Tags:             params.Tags,
	}

	if err := s.persistWithCodename(ctx, drop); err != nil {
		if delErr := s.blobs.Delete(ctx, carrierKey); delErr != nil {
			s.logger.Warn("orphaned carrier after failed create", "key", carrierKey, "error", delErr)
		}
		return nil, stats, err
	}

	s.appendEvent(ctx, drop.ID, models.EventUpload, meta)
	s.logger.Info("drop created",
		"drop_id", drop.ID, "codename", drop.Codename,
		"payload_size", drop.PayloadSize, "carrier", carrierType,
		"expires_at", drop.ExpiresAt)

	capacity := stego.Capacity(width, height, bitsPerChannel)
	stats = api.StegoStats{
		ImageSize:      int64(len(encoded)),
		ImageWidth:     width,
		ImageHeight:    height,
		PayloadSize:    int64(len(params.Payload)),
		EmbeddedSize:   int64(len(blob)),
		Capacity:       capacity,
		Utilization:    stego.Utilization(len(blob), capacity),
		BitsPerChannel: bitsPerChannel,
	}
	return drop, stats, nil
}

// persistWithCodename assigns a codename and inserts the drop,
// regenerating on the rare codename collision that slips past the
// existence pre-check.
func (s *DropService) persistWithCodename(ctx context.Context, drop *models.DeadDrop) error {
	for attempt := 0; attempt < createCodenameRetries; attempt++ {
		codename, err := store.GenerateCodename(s.store.CodenameExists)
		if err != nil {
			return internalError(err)
		}
		drop.Codename = codename

		err = s.store.CreateDrop(ctx, drop)
		if err == nil {
			return nil
		}
		if !store.IsUniqueConstraint(err) {
			return storeFailure(err)
		}
		s.logger.Debug("codename collision on insert", "codename", codename)
	}
	return storeFailure(fmt.Errorf("could not assign a unique codename"))
}

func (s *DropService) prepareCarrier(data []byte, blobLen, bitsPerChannel int) (*image.RGBA, string, error) {
	if len(data) == 0 {
		width, height := stego.ChooseDimensions(blobLen, bitsPerChannel)
		return stego.GenerateCarrier(width, height), models.CarrierGenerated, nil
	}

	img, err := stego.DecodeCarrier(data)
	if err != nil {
		return nil, "", mapStegoError(err)
	}
	fit := stego.Validate(img.Rect.Dx(), img.Rect.Dy(), blobLen, bitsPerChannel)
	if !fit.Valid {
		return nil, "", badRequestCode(
			fmt.Errorf("carrier capacity is %d bytes, payload needs %d", fit.Capacity, fit.Required),
			ErrCodeCapacityExceeded)
	}
	return img, models.CarrierUploaded, nil
}

// Lookup resolves a codename or drop ID to a drop. Returns ErrNotFound
// (as a 404 apiError) when nothing matches.
func (s *DropService) Lookup(ctx context.Context, ref string) (*models.DeadDrop, error) {
	var (
		drop *models.DeadDrop
		err  error
	)
	if normalized := store.NormalizeCodename(ref); store.IsCodename(normalized) {
		drop, err = s.store.GetDropByCodename(ctx, normalized)
	} else {
		drop, err = s.store.GetDrop(ctx, ref)
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	if drop == nil {
		return nil, notFound(ErrNotFound)
	}
	return drop, nil
}

// Accessibility reports whether a drop can still be retrieved. It is
// read-only: a drop past its TTL is reported Expired here, but the
// status transition and expired event are the sweeper's job, so
// repeated polling never writes to the store.
func (s *DropService) Accessibility(drop *models.DeadDrop) Accessibility {
	now := s.now().UTC()

	if drop.Status == models.StatusBurned {
		return Accessibility{Reason: ReasonBurned, Drop: drop}
	}
	if drop.Status == models.StatusExpired || drop.IsExpired(now) {
		return Accessibility{Reason: ReasonExpired, Drop: drop}
	}
	if drop.RetrievalsExhausted() {
		return Accessibility{Reason: ReasonRetrievalLimit, Drop: drop}
	}
	return Accessibility{Accessible: true, Drop: drop}
}

// Metadata returns the drop for the password-free metadata view,
// enforcing lifecycle state.
func (s *DropService) Metadata(ctx context.Context, ref string) (*models.DeadDrop, error) {
	drop, err := s.Lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if acc := s.Accessibility(drop); !acc.Accessible {
		return nil, accessibilityError(acc.Reason)
	}
	return drop, nil
}

// Retrieve exchanges codename and password for the payload. A wrong
// password never mutates counters or status; a correct one increments
// the counter, possibly burning the drop.
func (s *DropService) Retrieve(ctx context.Context, ref, password string, meta RequestMeta) (RetrieveResult, error) {
	var result RetrieveResult

	drop, err := s.Lookup(ctx, ref)
	if err != nil {
		return result, err
	}

	s.locks.Lock(drop.ID)
	defer s.locks.Unlock(drop.ID)

	// Re-read under the lock: a concurrent retrieval may have burned
	// the drop between lookup and lock acquisition.
	drop, err = s.store.GetDrop(ctx, drop.ID)
	if err != nil {
		return result, storeFailure(err)
	}
	if drop == nil {
		return result, notFound(ErrNotFound)
	}

	if acc := s.Accessibility(drop); !acc.Accessible {
		return result, accessibilityError(acc.Reason)
	}

	payload, err := s.decodePayload(ctx, drop, password)
	if err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			s.appendEvent(ctx, drop.ID, models.EventFailedPassword, meta)
		}
		return result, err
	}

	now := s.now().UTC()
	drop.RetrievalCount++
	if drop.FirstRetrievedAt == nil {
		at := now
		drop.FirstRetrievedAt = &at
	}
	at := now
	drop.LastRetrievedAt = &at

	status := models.StatusRetrieved
	if drop.ShouldBurn() {
		status = models.StatusBurned
	}
	drop.Status = status

	if err := s.store.RecordRetrieval(ctx, drop.ID, status, now); err != nil {
		return result, storeFailure(err)
	}
	s.appendEvent(ctx, drop.ID, models.EventRetrieval, meta)

	if status == models.StatusBurned {
		s.appendEvent(ctx, drop.ID, models.EventBurned, meta)
		s.scheduleBurn(drop.ID)
		s.logger.Info("drop burned", "drop_id", drop.ID, "codename", drop.Codename,
			"retrieval_count", drop.RetrievalCount)
	}

	return RetrieveResult{Drop: drop, Payload: payload, Burned: status == models.StatusBurned}, nil
}

// decodePayload loads the carrier, extracts the envelope and opens it.
// Every password failure surfaces as ErrInvalidPassword; corrupt
// carriers are indistinguishable from wrong passwords on purpose.
func (s *DropService) decodePayload(ctx context.Context, drop *models.DeadDrop, password string) ([]byte, error) {
	encoded, err := s.blobs.Get(ctx, drop.CarrierKey)
	if err != nil {
		return nil, internalError(fmt.Errorf("load carrier: %w", err))
	}
	img, err := stego.DecodeCarrier(encoded)
	if err != nil {
		return nil, internalError(fmt.Errorf("decode carrier: %w", err))
	}
	blob, err := stego.Extract(img, drop.BitsPerChannel)
	if err != nil {
		return nil, internalError(fmt.Errorf("extract payload: %w", err))
	}
	payload, err := envelope.Open(blob, []byte(password))
	if err != nil {
		return nil, unauthorized(ErrInvalidPassword, ErrCodeInvalidPassword)
	}
	return payload, nil
}

func (s *DropService) scheduleBurn(dropID string) {
	s.scheduler.Schedule(dropID, s.burnGrace, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.deleteResources(ctx, dropID); err != nil {
			s.logger.Error("delete burned drop", "drop_id", dropID, "error", err)
		}
	})
}

// Delete removes a drop immediately: pending burn timer, carrier blob
// and row. Events are retained.
func (s *DropService) Delete(ctx context.Context, ref string) error {
	drop, err := s.Lookup(ctx, ref)
	if err != nil {
		return err
	}
	s.scheduler.Cancel(drop.ID)
	if err := s.deleteResources(ctx, drop.ID); err != nil {
		return storeFailure(err)
	}
	s.logger.Info("drop deleted", "drop_id", drop.ID, "codename", drop.Codename)
	return nil
}

func (s *DropService) deleteResources(ctx context.Context, dropID string) error {
	drop, err := s.store.GetDrop(ctx, dropID)
	if err != nil {
		return err
	}
	if drop != nil && drop.CarrierKey != "" {
		if err := s.blobs.Delete(ctx, drop.CarrierKey); err != nil {
			s.logger.Warn("delete carrier blob", "drop_id", dropID, "key", drop.CarrierKey, "error", err)
		}
	}
	return s.store.DeleteDrop(ctx, dropID)
}

// Events returns the audit trail for a drop. Works for deleted drops
// too when addressed by ID, since events outlive the row.
func (s *DropService) Events(ctx context.Context, ref string) (string, []models.DropEvent, error) {
	dropID := ref
	if normalized := store.NormalizeCodename(ref); store.IsCodename(normalized) {
		drop, err := s.store.GetDropByCodename(ctx, normalized)
		if err != nil {
			return "", nil, storeFailure(err)
		}
		if drop == nil {
			return "", nil, notFound(ErrNotFound)
		}
		dropID = drop.ID
	}
	events, err := s.store.ListEvents(ctx, dropID)
	if err != nil {
		return "", nil, storeFailure(err)
	}
	return dropID, events, nil
}

func (s *DropService) appendEvent(ctx context.Context, dropID, eventType string, meta RequestMeta) {
	event := &models.DropEvent{
		DropID:    dropID,
		Type:      eventType,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		s.logger.Warn("append drop event", "drop_id", dropID, "type", eventType, "error", err)
	}
}

func accessibilityError(reason string) error {
	switch reason {
	case ReasonExpired:
		return gone(ErrExpired, ErrCodeDropExpired)
	case ReasonBurned:
		return gone(ErrBurned, ErrCodeDropBurned)
	case ReasonRetrievalLimit:
		return gone(ErrRetrievalLimit, ErrCodeRetrievalLimit)
	default:
		return notFound(ErrNotFound)
	}
}

func mapStegoError(err error) error {
	switch {
	case errors.Is(err, stego.ErrUnsupportedCarrier):
		return unsupportedMedia(err)
	case errors.Is(err, stego.ErrCapacityExceeded):
		return badRequestCode(err, ErrCodeCapacityExceeded)
	case errors.Is(err, stego.ErrInvalidBitDepth):
		return badRequestCode(err, ErrCodeInvalidBitDepth)
	default:
		return internalError(err)
	}
}
