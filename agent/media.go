package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Twynzen/dymensisCDA-sub002/entity"
	"github.com/Twynzen/dymensisCDA-sub002/extract"
	"github.com/Twynzen/dymensisCDA-sub002/persist"
	"github.com/Twynzen/dymensisCDA-sub002/session"
	"github.com/Twynzen/dymensisCDA-sub002/types"
)

// MaxImageSize bounds uploaded images.
const MaxImageSize = 8 << 20

// ImageSlot is where a pending image is committed.
type ImageSlot string

const (
	SlotCover    ImageSlot = "cover"
	SlotLocation ImageSlot = "location"
	SlotAvatar   ImageSlot = "avatar"
)

func ParseImageSlot(s string) (ImageSlot, bool) {
	switch slot := ImageSlot(strings.ToLower(strings.TrimSpace(s))); slot {
	case SlotCover, SlotLocation, SlotAvatar:
		return slot, true
	}
	return "", false
}

func slotAllowed(target types.TargetType, slot ImageSlot) bool {
	switch target {
	case types.TargetUniverse:
		return slot == SlotCover || slot == SlotLocation
	case types.TargetCharacter:
		return slot == SlotAvatar
	}
	return false
}

// UploadImage holds an image as pending until the user says where it goes.
func (svc *Service) UploadImage(ctx context.Context, s *session.Store, data []byte, mimeType string) error {
	return svc.run(ctx, s, "UploadImage", func(ctx context.Context) error {
		locale := s.Locale()
		target, err := activeTarget(s)
		if err != nil {
			return svc.fail(ctx, s, err, msgWhatToCreate.in(locale))
		}
		img, err := newImage(data, mimeType)
		if err != nil {
			return svc.fail(ctx, s, err, msgInvalidImage.in(locale))
		}
		s.SetPendingImage(img)
		prompt := msgClassifyUniverseImage
		if target == types.TargetCharacter {
			prompt = msgClassifyCharacterImage
		}
		s.AddMessage(schema.Assistant, prompt.in(locale))
		svc.refresh(s)
		slog.DebugContext(ctx, "image pending", "tracking_id", s.TrackingID(), "mime_type", img.MimeType, "size", img.Size)
		return nil
	})
}

func newImage(data []byte, mimeType string) (*session.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidImage, len(data), MaxImageSize)
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: mime type %q", ErrInvalidImage, mimeType)
	}
	return &session.Image{
		Ref:      "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Size:     len(data),
	}, nil
}

// ClassifyImage commits the pending image into slot.
func (svc *Service) ClassifyImage(ctx context.Context, s *session.Store, slot ImageSlot) error {
	return svc.run(ctx, s, "ClassifyImage", func(ctx context.Context) error {
		return svc.classifyImage(ctx, s, slot)
	})
}

func (svc *Service) classifyImage(ctx context.Context, s *session.Store, slot ImageSlot) error {
	locale := s.Locale()
	img := s.PendingImage()
	if img == nil {
		return svc.fail(ctx, s, ErrNoPendingImage, msgNoPendingImage.in(locale))
	}
	target := s.Mode().Target()
	if !slotAllowed(target, slot) {
		return svc.fail(ctx, s, fmt.Errorf("%w: %s for %s", ErrInvalidImageSlot, slot, target), msgInvalidSlot.in(locale))
	}

	switch slot {
	case SlotCover:
		s.MergeCollected(map[string]any{"coverImage": img.Ref})
	case SlotAvatar:
		s.MergeCollected(map[string]any{"avatar": img.Ref})
	case SlotLocation:
		var locations []string
		switch v := s.Collected()["locations"].(type) {
		case []string:
			locations = v
		case []any:
			for _, item := range v {
				if str, ok := item.(string); ok {
					locations = append(locations, str)
				}
			}
		}
		s.MergeCollected(map[string]any{"locations": append(locations, img.Ref)})
	}
	s.SetPendingImage(nil)

	if s.Draft() != nil {
		draft, err := svc.build(target, s)
		if err != nil {
			return svc.fail(ctx, s, err, msgGenerationFailed.in(locale))
		}
		s.SetDraft(draft)
		if s.ConfirmationMode() {
			s.SetValidation(entity.Validate(draft, locale))
		}
		if err := svc.syncPersisted(ctx, s); err != nil {
			err = fmt.Errorf("%w: %w", ErrPersistence, err)
			return svc.fail(ctx, s, err, msgPersistenceFailed.in(locale, err.Error()))
		}
	}

	s.AddMessage(schema.Assistant, msgImageStored.in(locale, slotNames[slot].in(locale)))
	svc.refresh(s)
	return nil
}

// syncPersisted pushes draft changes to an entity this session already saved.
func (svc *Service) syncPersisted(ctx context.Context, s *session.Store) error {
	id := s.CreatedID()
	if id == "" || s.Persisted() == nil {
		return nil
	}
	draft := s.Draft()
	patch, err := persist.MergePatch(s.Persisted(), draft)
	if err != nil {
		return err
	}
	if persist.IsEmptyPatch(patch) {
		return nil
	}
	if err := svc.repo.UpdateEntity(ctx, id, patch); err != nil {
		return err
	}
	s.SetPersisted(draft)
	slog.InfoContext(ctx, "entity updated", "tracking_id", s.TrackingID(), "id", id)
	return nil
}

// SelectUniverse attaches the character being built to a stored universe.
func (svc *Service) SelectUniverse(ctx context.Context, s *session.Store, id string) error {
	return svc.run(ctx, s, "SelectUniverse", func(ctx context.Context) error {
		locale := s.Locale()
		if s.Mode() != types.ModeCharacter {
			return svc.fail(ctx, s, fmt.Errorf("%w: universe selection needs a character flow", ErrUnsupportedTarget), msgWhatToCreate.in(locale))
		}
		u, err := svc.repo.GetUniverse(ctx, id)
		if err != nil {
			if errors.Is(err, persist.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ErrUniverseNotFound, id)
			}
			return svc.fail(ctx, s, err, msgUniverseNotFound.in(locale))
		}
		svc.selectUniverse(s, u)
		svc.refresh(s)
		if s.Draft() == nil && s.PhaseState().CanSkipToConfirmation {
			if err := svc.prepareReview(ctx, s); err != nil {
				return err
			}
			svc.refresh(s)
		}
		return nil
	})
}

func (svc *Service) selectUniverse(s *session.Store, u *entity.Universe) {
	s.SetSelectedUniverse(u)
	s.MergeCollected(map[string]any{"universeId": u.ID})
	s.AddMessage(schema.Assistant, msgUniverseSelected.in(s.Locale(), u.Name))
}

func (svc *Service) listUniverses(ctx context.Context, s *session.Store) {
	universes, err := svc.repo.ListUniverses(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to list universes", "tracking_id", s.TrackingID(), "error", err)
		return
	}
	locale := s.Locale()
	if len(universes) == 0 {
		s.AddMessage(schema.Assistant, msgNoUniverses.in(locale))
		return
	}
	names := make([]string, 0, len(universes))
	for _, u := range universes {
		names = append(names, u.Name)
	}
	s.AddMessage(schema.Assistant, bulletList(msgAvailableUniverses.in(locale), names))
}

// matchUniverse selects the stored universe named in utterance, if any.
func (svc *Service) matchUniverse(ctx context.Context, s *session.Store, utterance string) {
	universes, err := svc.repo.ListUniverses(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to list universes", "tracking_id", s.TrackingID(), "error", err)
		return
	}
	lowered := strings.ToLower(utterance)
	for _, u := range universes {
		if extract.ContainsKeyword(lowered, strings.ToLower(strings.TrimSpace(u.Name))) {
			svc.selectUniverse(s, u)
			return
		}
	}
}
