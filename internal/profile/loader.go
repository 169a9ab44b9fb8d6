// Package profile assembles the customer portal view-model.  The profile is
// built from about fifteen independent reads; each read has a default value
// that is shown when it fails, returns nothing or does not finish before the
// load timeout.  A failing section never fails the page.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/fallback"
	"github.com/iliyamo/smartfix/internal/metrics"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
)

// Identity is the authenticated caller as known to the auth layer.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Phone  string
}

// CustomerStore resolves the customer row behind an identity.
type CustomerStore interface {
	FindOrCreate(ctx context.Context, email, name, phone string) (model.Customer, error)
}

// BookingSource lists the bookings of a customer.
type BookingSource interface {
	ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error)
}

// RecordSource reads the customer-owned tables.
type RecordSource interface {
	Addresses(ctx context.Context, customerID string) ([]model.Address, error)
	Notifications(ctx context.Context, customerID string) ([]model.Notification, error)
	LoyaltyAccount(ctx context.Context, customerID string) (model.LoyaltyAccount, error)
	LoyaltyRewards(ctx context.Context, maxPoints int) ([]model.LoyaltyReward, error)
	LoyaltyHistory(ctx context.Context, customerID string) ([]model.LoyaltyTransaction, error)
	Devices(ctx context.Context, customerID string) ([]model.CustomerDevice, error)
	Warranties(ctx context.Context, customerID string) ([]model.Warranty, error)
	Invoices(ctx context.Context, customerID string) ([]model.Invoice, error)
	Referrals(ctx context.Context, customerID string) ([]model.Referral, error)
	Settings(ctx context.Context, customerID string) (model.CustomerSettings, error)
	Reviews(ctx context.Context, customerID string) ([]model.Review, error)
	Favorites(ctx context.Context, customerID string) ([]model.Favorite, error)
	PaymentMethods(ctx context.Context, customerID string) ([]model.PaymentMethod, error)
}

// TicketSource lists support tickets of a customer.
type TicketSource interface {
	ByCustomer(ctx context.Context, customerID string) ([]model.SupportTicket, error)
}

// CatalogSource serves the services and bookable slots shown next to the
// profile.
type CatalogSource interface {
	ActiveServices(ctx context.Context) ([]model.Service, error)
	AvailableTimeSlots(ctx context.Context, day time.Time) ([]model.TimeSlot, error)
}

// Loader builds profiles.  All sources are required.
type Loader struct {
	Customers CustomerStore
	Bookings  BookingSource
	Records   RecordSource
	Tickets   TicketSource
	Catalog   CatalogSource

	Timeout time.Duration
	Log     *zap.Logger
	Metrics *metrics.Metrics

	now func() time.Time
}

// NewLoader wires a Loader.  A zero timeout means 10 seconds.
func NewLoader(customers CustomerStore, bookings BookingSource, records RecordSource,
	tickets TicketSource, catalog CatalogSource, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Loader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		Customers: customers, Bookings: bookings, Records: records, Tickets: tickets, Catalog: catalog,
		Timeout:   timeout, Log: log, Metrics: m, now: time.Now,
	}
}

// Section names, as reported in logs, metrics and DefaultedSections.
const (
	SectionBookings       = "bookings"
	SectionAddresses      = "addresses"
	SectionNotifications  = "notifications"
	SectionLoyalty        = "loyalty"
	SectionDevices        = "devices"
	SectionWarranties     = "warranties"
	SectionInvoices       = "invoices"
	SectionReferrals      = "referrals"
	SectionSettings       = "settings"
	SectionReviews        = "reviews"
	SectionFavorites      = "favorites"
	SectionPaymentMethods = "paymentMethods"
	SectionSupportTickets = "supportTickets"
	SectionServices       = "services"
	SectionTimeSlots      = "timeSlots"
)

// Load resolves the customer and fetches every section concurrently.  It
// only returns an error when ctx was already cancelled on entry.
func (l *Loader) Load(ctx context.Context, id Identity) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	if l.now == nil {
		l.now = time.Now
	}
	start := l.now()
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	cust := l.resolveCustomer(ctx, id)
	log := l.Log.With(zap.String("user_id", id.UserID), zap.String("customer_id", cust.ID))

	var defaulted []string
	g := fallback.NewGroup(ctx, func(section string, reason fallback.Reason, err error) {
		defaulted = append(defaulted, section)
		l.Metrics.Fallback(section, string(reason))
		if reason == fallback.ReasonEmpty || reason == fallback.ReasonSkipped {
			log.Debug("profile section defaulted", zap.String("section", section), zap.String("reason", string(reason)))
			return
		}
		log.Warn("profile section defaulted", zap.String("section", section), zap.String("reason", string(reason)), zap.Error(err))
	})

	refCode := ReferralCode(cust.ID, id.UserID)
	s := l.start(g, cust.ID, refCode)
	complete := g.Wait()

	// Results are read after Wait so the observer runs on this goroutine only.
	p := Profile{
		Customer: CustomerView{
			ID:    cust.ID, Email: firstNonEmpty(cust.Email, id.Email), Name: firstNonEmpty(cust.Name, id.Name),
			Phone: firstNonEmpty(cust.Phone, id.Phone), Linked: cust.ID != "",
		},
		Bookings:       s.bookings.Value(),
		Addresses:      s.addresses.Value(),
		Notifications:  s.notifications.Value(),
		Loyalty:        s.loyalty.Value(),
		Devices:        s.devices.Value(),
		Warranties:     s.warranties.Value(),
		Invoices:       s.invoices.Value(),
		Referrals:      s.referrals.Value(),
		Settings:       s.settings.Value(),
		Reviews:        s.reviews.Value(),
		Favorites:      s.favorites.Value(),
		PaymentMethods: s.payments.Value(),
		SupportTickets: s.tickets.Value(),
		Services:       s.services.Value(),
		TimeSlots:      s.slots.Value(),
		Partial:        !complete,
		LoadedAt:       l.now().UTC(),
	}
	if defaulted == nil {
		defaulted = []string{}
	}
	p.DefaultedSections = defaulted

	l.Metrics.ObserveProfile(l.now().Sub(start), p.Partial)
	if p.Partial {
		log.Warn("profile load timed out; unfinished sections defaulted", zap.Duration("timeout", l.Timeout))
	}
	return p, nil
}

// resolveCustomer finds or lazily creates the customer row.  On failure the
// returned customer has no id and the customer-keyed sections are skipped.
func (l *Loader) resolveCustomer(ctx context.Context, id Identity) model.Customer {
	email := strings.TrimSpace(id.Email)
	if email == "" {
		l.Log.Warn("profile identity has no email", zap.String("user_id", id.UserID))
		return model.Customer{}
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	c, err := l.Customers.FindOrCreate(ctx, email, name, id.Phone)
	if err != nil {
		l.Log.Warn("customer resolution failed", zap.String("user_id", id.UserID), zap.Error(err))
		return model.Customer{Email: email}
	}
	return c
}

type sections struct {
	bookings      *fallback.Section[[]BookingView]
	addresses     *fallback.Section[[]AddressView]
	notifications *fallback.Section[[]NotificationView]
	loyalty       *fallback.Section[LoyaltyView]
	devices       *fallback.Section[[]DeviceView]
	warranties    *fallback.Section[[]WarrantyView]
	invoices      *fallback.Section[[]InvoiceView]
	referrals     *fallback.Section[ReferralView]
	settings      *fallback.Section[SettingsView]
	reviews       *fallback.Section[[]ReviewView]
	favorites     *fallback.Section[[]FavoriteView]
	payments      *fallback.Section[[]PaymentView]
	tickets       *fallback.Section[[]TicketView]
	services      *fallback.Section[[]ServiceView]
	slots         *fallback.Section[[]TimeSlotView]
}

// DefaultLoyalty is shown when the customer has no loyalty account.
func DefaultLoyalty() LoyaltyView {
	return LoyaltyView{Points: 0, Tier: TierBronze, AvailableRewards: []RewardView{}, PointsHistory: []PointsEntryView{}}
}

// DefaultSettings is shown when the customer never saved settings.
func DefaultSettings() SettingsView {
	return SettingsView{EmailNotifications: true, PreferredContact: "email"}
}

func (l *Loader) start(g *fallback.Group, customerID, refCode string) sections {
	now := l.now()
	var s sections
	refDefault := ReferralView{Code: refCode, Referrals: []ReferralEntryView{}}

	// Catalog sections do not depend on the customer.
	s.services = fallback.Go(g, SectionServices, []ServiceView{}, func(ctx context.Context) ([]ServiceView, error) {
		rows, err := l.Catalog.ActiveServices(ctx)
		return mapAll(rows, serviceView), err
	}, nil)
	s.slots = fallback.Go(g, SectionTimeSlots, []TimeSlotView{}, func(ctx context.Context) ([]TimeSlotView, error) {
		rows, err := l.Catalog.AvailableTimeSlots(ctx, now)
		return mapAll(rows, slotView), err
	}, nil)

	if customerID == "" {
		s.bookings = fallback.Skip(g, SectionBookings, []BookingView{})
		s.addresses = fallback.Skip(g, SectionAddresses, []AddressView{})
		s.notifications = fallback.Skip(g, SectionNotifications, []NotificationView{})
		s.loyalty = fallback.Skip(g, SectionLoyalty, DefaultLoyalty())
		s.devices = fallback.Skip(g, SectionDevices, []DeviceView{})
		s.warranties = fallback.Skip(g, SectionWarranties, []WarrantyView{})
		s.invoices = fallback.Skip(g, SectionInvoices, []InvoiceView{})
		s.referrals = fallback.Skip(g, SectionReferrals, refDefault)
		s.settings = fallback.Skip(g, SectionSettings, DefaultSettings())
		s.reviews = fallback.Skip(g, SectionReviews, []ReviewView{})
		s.favorites = fallback.Skip(g, SectionFavorites, []FavoriteView{})
		s.payments = fallback.Skip(g, SectionPaymentMethods, []PaymentView{})
		s.tickets = fallback.Skip(g, SectionSupportTickets, []TicketView{})
		return s
	}

	s.bookings = goList(g, SectionBookings, customerID, l.Bookings.ListByCustomer, bookingView)
	s.addresses = goList(g, SectionAddresses, customerID, l.Records.Addresses, addressView)
	s.notifications = goList(g, SectionNotifications, customerID, l.Records.Notifications, notificationView)
	s.devices = goList(g, SectionDevices, customerID, l.Records.Devices, deviceView)
	s.warranties = goList(g, SectionWarranties, customerID, l.Records.Warranties, func(w model.Warranty) WarrantyView {
		return warrantyView(w, now)
	})
	s.invoices = goList(g, SectionInvoices, customerID, l.Records.Invoices, invoiceView)
	s.reviews = goList(g, SectionReviews, customerID, l.Records.Reviews, reviewView)
	s.favorites = goList(g, SectionFavorites, customerID, l.Records.Favorites, favoriteView)
	s.payments = goList(g, SectionPaymentMethods, customerID, l.Records.PaymentMethods, paymentView)
	s.tickets = goList(g, SectionSupportTickets, customerID, l.Tickets.ByCustomer, ticketView)

	s.loyalty = fallback.Go(g, SectionLoyalty, DefaultLoyalty(), func(ctx context.Context) (LoyaltyView, error) {
		return l.loyalty(ctx, customerID)
	}, nil)
	s.referrals = fallback.Go(g, SectionReferrals, refDefault, func(ctx context.Context) (ReferralView, error) {
		rows, err := l.Records.Referrals(ctx, customerID)
		if err != nil {
			return ReferralView{}, err
		}
		return referralView(rows, refCode), nil
	}, nil)
	s.settings = fallback.Go(g, SectionSettings, DefaultSettings(), func(ctx context.Context) (SettingsView, error) {
		st, err := l.Records.Settings(ctx, customerID)
		if errors.Is(err, repository.ErrNotFound) {
			return SettingsView{}, fallback.ErrEmpty
		}
		if err != nil {
			return SettingsView{}, err
		}
		return settingsView(st), nil
	}, nil)
	return s
}

// loyalty reads the account and then, best effort, its rewards and history.
// A missing account yields the default view.
func (l *Loader) loyalty(ctx context.Context, customerID string) (LoyaltyView, error) {
	acc, err := l.Records.LoyaltyAccount(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return LoyaltyView{}, fallback.ErrEmpty
	}
	if err != nil {
		return LoyaltyView{}, err
	}
	v := DefaultLoyalty()
	v.Points = acc.Points
	v.Tier = acc.Tier
	if v.Tier == "" {
		v.Tier = TierForPoints(acc.Points)
	}
	if rewards, err := l.Records.LoyaltyRewards(ctx, acc.Points); err == nil {
		v.AvailableRewards = mapAll(rewards, rewardView)
	} else {
		l.Log.Warn("loyalty rewards unavailable", zap.String("customer_id", customerID), zap.Error(err))
	}
	if hist, err := l.Records.LoyaltyHistory(ctx, customerID); err == nil {
		v.PointsHistory = mapAll(hist, pointsEntryView)
	} else {
		l.Log.Warn("loyalty history unavailable", zap.String("customer_id", customerID), zap.Error(err))
	}
	return v, nil
}

// goList starts a customer-keyed list section that maps each row with conv.
func goList[R, V any](g *fallback.Group, name, customerID string,
	fetch func(context.Context, string) ([]R, error), conv func(R) V) *fallback.Section[[]V] {
	return fallback.Go(g, name, []V{}, func(ctx context.Context) ([]V, error) {
		rows, err := fetch(ctx, customerID)
		if err != nil {
			return nil, err
		}
		return mapAll(rows, conv), nil
	}, nil)
}

func mapAll[R, V any](rows []R, conv func(R) V) []V {
	out := make([]V, 0, len(rows))
	for _, r := range rows {
		out = append(out, conv(r))
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
