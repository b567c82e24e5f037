package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kyleyee20/aevum/core"
)

var ErrProfileNotFound = errors.Wrap(core.ErrNotFound, "course profile")

type (
	// VocabularySource fetches an institution's category-then-items course table.
	VocabularySource interface {
		FetchTable(ctx context.Context, institution string) ([]TableRow, error)
	}

	// Service manages the student's course profiles. The prioritization engine only reads them.
	Service struct {
		store     core.RecordStore
		namespace string
		bus       core.ChangeBus
		log       core.Logger
	}
)

func NewService(store core.RecordStore, namespace string, bus core.ChangeBus, log core.Logger) *Service {
	return &Service{store: store, namespace: namespace, bus: bus, log: log}
}

// LoadProfiles reads the stored profiles in insertion order.
func LoadProfiles(tx core.RecordTx, log core.Logger) ([]Profile, error) {
	profiles, err := core.LoadRecord[[]Profile](tx, core.KeyProfiles, log)
	if profiles == nil {
		profiles = []Profile{}
	}
	return profiles, err
}

// LoadVocabulary reads the cached vocabulary of the selected institution.
func LoadVocabulary(tx core.RecordTx, log core.Logger) (Vocabulary, error) {
	vocab, err := core.LoadRecord[Vocabulary](tx, core.KeyVocabulary, log)
	if vocab == nil {
		vocab = Vocabulary{}
	}
	return vocab, err
}

// LoadResolver builds a Resolver from the stored profiles and vocabulary.
func LoadResolver(tx core.RecordTx, log core.Logger) (*Resolver, error) {
	profiles, err := LoadProfiles(tx, log)
	if err != nil {
		return nil, err
	}
	vocab, err := LoadVocabulary(tx, log)
	if err != nil {
		return nil, err
	}
	return NewResolver(profiles, vocab), nil
}

func (svc *Service) QueryProfiles() ([]Profile, error) {
	var profiles []Profile
	err := svc.store.View(svc.namespace, func(tx core.RecordTx) (err error) {
		profiles, err = LoadProfiles(tx, svc.log)
		return err
	})
	return profiles, err
}

// Vocabulary returns the selected institution and its cached vocabulary.
func (svc *Service) Vocabulary() (string, Vocabulary, error) {
	var (
		institution string
		vocab       Vocabulary
	)
	err := svc.store.View(svc.namespace, func(tx core.RecordTx) (err error) {
		if institution, err = core.LoadString(tx, core.KeyInstitution); err != nil {
			return err
		}
		vocab, err = LoadVocabulary(tx, svc.log)
		return err
	})
	return institution, vocab, err
}

func (svc *Service) AddProfile(ctx context.Context, np NewProfile) (Profile, error) {
	if err := core.ValidateStruct(np); err != nil {
		return Profile{}, err
	}
	prof := np.Profile()
	err := svc.update(ctx, func(profiles []Profile) ([]Profile, error) {
		return append(profiles, prof), nil
	})
	if err != nil {
		return Profile{}, err
	}
	return prof, nil
}

func (svc *Service) UpdateProfile(ctx context.Context, id string, up UpdateProfile) (Profile, error) {
	if err := core.ValidateStruct(up); err != nil {
		return Profile{}, err
	}
	var prof Profile
	err := svc.update(ctx, func(profiles []Profile) ([]Profile, error) {
		for i, p := range profiles {
			if p.ID == id {
				profiles[i] = up.Apply(p)
				prof = profiles[i]
				return profiles, nil
			}
		}
		return nil, ErrProfileNotFound
	})
	return prof, err
}

func (svc *Service) DeleteProfile(ctx context.Context, id string) error {
	return svc.update(ctx, func(profiles []Profile) ([]Profile, error) {
		for i, p := range profiles {
			if p.ID == id {
				return append(profiles[:i], profiles[i+1:]...), nil
			}
		}
		return nil, ErrProfileNotFound
	})
}

// ReplaceProfiles swaps every stored profile for nps, in order.
func (svc *Service) ReplaceProfiles(ctx context.Context, nps []NewProfile) ([]Profile, error) {
	profiles := make([]Profile, 0, len(nps))
	for _, np := range nps {
		if err := core.ValidateStruct(np); err != nil {
			return nil, err
		}
		profiles = append(profiles, np.Profile())
	}
	err := svc.update(ctx, func([]Profile) ([]Profile, error) {
		return profiles, nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// update runs a read-modify-write of the profile collection, refused while signed out.
func (svc *Service) update(ctx context.Context, fn func([]Profile) ([]Profile, error)) error {
	err := svc.store.Update(svc.namespace, func(tx core.RecordTx) error {
		if err := core.RequireCredential(tx); err != nil {
			return err
		}
		profiles, err := LoadProfiles(tx, svc.log)
		if err != nil {
			return err
		}
		if profiles, err = fn(profiles); err != nil {
			return err
		}
		return core.SaveRecord(tx, core.KeyProfiles, profiles)
	})
	if err != nil {
		return err
	}
	core.Announce(ctx, svc.bus, svc.log, svc.namespace, "profiles", core.KeyProfiles)
	return nil
}
