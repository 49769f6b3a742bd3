package directory

import (
	"errors"
	"strings"
	"time"

	"hangartalk/pkg/ledger"
	"hangartalk/pkg/logger"
	"hangartalk/pkg/models"
	"hangartalk/pkg/store"
	"hangartalk/pkg/utils"
)

// ErrEmptyName rejects channel or category creation with a blank name.
var ErrEmptyName = errors.New("empty name")

// Directory enumerates channels for a viewer: category grouping, per-user
// unread counts, the single active flag, and the synthetic moderation
// channel injected for viewers holding CapModerate. Channel visibility is
// gated by capability membership, never by comparing role names or channel
// id strings at call sites.
type Directory struct {
	st             *store.Store
	led            *ledger.Ledger
	defaultChannel string
}

func New(st *store.Store, led *ledger.Ledger, defaultChannel string) *Directory {
	return &Directory{st: st, led: led, defaultChannel: defaultChannel}
}

// AddChannel creates a channel, minting id and slug when absent.
func (d *Directory) AddChannel(ch models.Channel) (models.Channel, error) {
	ch.Name = strings.TrimSpace(ch.Name)
	if ch.Name == "" {
		return models.Channel{}, ErrEmptyName
	}
	if ch.ID == "" {
		ch.ID = utils.GenChannelID()
	}
	if ch.ID == models.ModerationChannelID {
		return models.Channel{}, errors.New("reserved channel id")
	}
	if ch.Category == "" {
		ch.Category = models.DefaultCategory
	}
	if ch.Slug == "" {
		ch.Slug = utils.MakeSlug(ch.Name, ch.ID)
	}
	now := time.Now().UTC().UnixNano()
	if ch.CreatedTS == 0 {
		ch.CreatedTS = now
	}
	if ch.UpdatedTS == 0 {
		ch.UpdatedTS = ch.CreatedTS
	}
	if err := d.st.SaveChannel(ch); err != nil {
		return models.Channel{}, err
	}
	logger.Info("channel_created", "channel", ch.ID, "name", ch.Name, "category", ch.Category)
	return ch, nil
}

// AddCategory registers a category label for grouping.
func (d *Directory) AddCategory(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	return d.st.AddCategory(strings.TrimSpace(name))
}

// Categories lists known category labels.
func (d *Directory) Categories() ([]string, error) {
	return d.st.ListCategories()
}

// Resolve returns the channel list for a viewer with derived fields
// stamped: per-user unread counts, the moderation channel when the viewer
// may moderate (its unread badge is the open report count), and exactly one
// active channel. The active id resolves requested -> default -> first;
// when no channels exist it is empty and the list is returned as-is.
func (d *Directory) Resolve(viewer string, role models.Role, requested string) ([]models.Channel, string, error) {
	chans, err := d.st.ListChannels()
	if err != nil {
		return nil, "", err
	}
	for i := range chans {
		n, err := d.st.UnreadCount(viewer, chans[i].ID)
		if err != nil {
			return nil, "", err
		}
		chans[i].Unread = n
		chans[i].Active = false
	}
	if role.Can(models.CapModerate) {
		chans = append(chans, models.Channel{
			ID:        models.ModerationChannelID,
			Name:      "Moderation Queue",
			Icon:      "shield",
			Category:  "Moderation",
			Unread:    d.led.Size(),
			Synthetic: true,
		})
	}

	active := ""
	find := func(id string) int {
		if id == "" {
			return -1
		}
		for i := range chans {
			if chans[i].ID == id {
				return i
			}
		}
		return -1
	}
	idx := find(requested)
	if idx < 0 {
		idx = find(d.defaultChannel)
	}
	if idx < 0 && len(chans) > 0 {
		idx = 0
	}
	if idx >= 0 {
		chans[idx].Active = true
		active = chans[idx].ID
	}
	return chans, active, nil
}
