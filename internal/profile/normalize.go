package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/smartfix/internal/model"
)

// Loyalty tiers.
const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

// TierForPoints derives the tier of an account that has none stored.
func TierForPoints(points int) string {
	switch {
	case points >= 5000:
		return TierPlatinum
	case points >= 1500:
		return TierGold
	case points >= 500:
		return TierSilver
	default:
		return TierBronze
	}
}

// ReferralCode is the code shown when the customer has no stored referral
// code: "SFX-" followed by the first six characters of the customer id, or
// of the auth user id when no customer row exists, upper-cased.
func ReferralCode(customerID, userID string) string {
	src := customerID
	if src == "" {
		src = userID
	}
	if len(src) > 6 {
		src = src[:6]
	}
	return "SFX-" + strings.ToUpper(src)
}

// DeviceDisplayName picks the label of a registered device.
func DeviceDisplayName(d model.CustomerDevice) string {
	if n := strings.TrimSpace(d.Name); n != "" {
		return n
	}
	if n := (model.Device{Brand: d.Brand, Model: d.Model}).DisplayName(); n != "" {
		return n
	}
	return "Unknown device"
}

const dateLayout = "2006-01-02"

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func bookingView(b model.Booking) BookingView {
	v := BookingView{
		ID:             b.ID,
		TrackingNumber: b.TrackingNumber,
		Device:         b.Device.DisplayName(),
		DeviceType:     b.Device.Type,
		Service:        b.ServiceName,
		Status:         string(b.Status),
		Priority:       string(b.Priority),
		ScheduledDate:  b.ScheduledDate,
		ScheduledTime:  b.ScheduledTime,
		DeliveryType:   b.DeliveryType,
		ReadyForPickup: b.ReadyForPickup(),
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.Device == "" {
		v.Device = "Unknown device"
	}
	if b.CostEstimate != nil {
		f := b.CostEstimate.InexactFloat64()
		v.CostEstimate = &f
	}
	return v
}

func addressView(a model.Address) AddressView {
	return AddressView{ID: a.ID, Label: a.Label, Street: a.Street, City: a.City, State: a.State, Zip: a.Zip, IsDefault: a.IsDefault}
}

func notificationView(n model.Notification) NotificationView {
	return NotificationView{
		ID:        n.ID, Title: n.Title, Message: n.Message, Type: n.Type, Read: n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func rewardView(r model.LoyaltyReward) RewardView {
	return RewardView{ID: r.ID, Name: r.Name, Description: r.Description, PointsCost: r.PointsCost}
}

func pointsEntryView(t model.LoyaltyTransaction) PointsEntryView {
	return PointsEntryView{Points: t.Points, Description: t.Description, Date: fmtDate(t.CreatedAt)}
}

func deviceView(d model.CustomerDevice) DeviceView {
	return DeviceView{
		ID: d.ID, Name: DeviceDisplayName(d), Type: d.Type, Brand: d.Brand, Model: d.Model, SerialNumber: d.SerialNumber,
	}
}

func warrantyView(w model.Warranty, now time.Time) WarrantyView {
	return WarrantyView{
		ID:        w.ID, BookingID: w.BookingID, Device: w.DeviceName, Coverage: w.Coverage,
		StartDate: fmtDate(w.StartsAt), ExpiryDate: fmtDate(w.ExpiresAt),
		Active:    !now.Before(w.StartsAt) && now.Before(w.ExpiresAt),
	}
}

func invoiceView(inv model.Invoice) InvoiceView {
	v := InvoiceView{
		ID:     inv.ID, InvoiceNumber: inv.InvoiceNumber, BookingID: inv.BookingID,
		Amount: inv.Amount.Round(2).InexactFloat64(), Status: inv.Status, IssuedDate: fmtDate(inv.IssuedAt),
	}
	if inv.DueAt != nil {
		v.DueDate = fmtDate(*inv.DueAt)
	}
	return v
}

// referralView uses the stored code when one exists.
func referralView(rows []model.Referral, fallbackCode string) ReferralView {
	v := ReferralView{Code: fallbackCode, Referrals: make([]ReferralEntryView, 0, len(rows))}
	for _, r := range rows {
		if v.Code == fallbackCode && strings.TrimSpace(r.Code) != "" {
			v.Code = r.Code
		}
		if strings.EqualFold(r.Status, "completed") {
			v.TotalEarned += r.RewardPoints
		}
		v.Referrals = append(v.Referrals, ReferralEntryView{
			Email: r.ReferredEmail, Status: r.Status, RewardPoints: r.RewardPoints, Date: fmtDate(r.CreatedAt),
		})
	}
	return v
}

func settingsView(s model.CustomerSettings) SettingsView {
	v := SettingsView{
		EmailNotifications: s.EmailNotifications,
		SMSNotifications:   s.SMSNotifications,
		MarketingEmails:    s.MarketingEmails,
		PreferredContact:   s.PreferredContact,
	}
	if v.PreferredContact == "" {
		v.PreferredContact = "email"
	}
	return v
}

func reviewView(r model.Review) ReviewView {
	return ReviewView{ID: r.ID, BookingID: r.BookingID, Rating: r.Rating, Comment: r.Comment, Date: fmtDate(r.CreatedAt)}
}

func favoriteView(f model.Favorite) FavoriteView {
	return FavoriteView{ID: f.ID, ServiceID: f.ServiceID, ServiceName: f.ServiceName}
}

func paymentView(p model.PaymentMethod) PaymentView {
	return PaymentView{
		ID:     p.ID, Brand: p.Brand, Last4: p.Last4, IsDefault: p.IsDefault,
		Expiry: fmt.Sprintf("%02d/%02d", p.ExpMonth, p.ExpYear%100),
	}
}

func ticketView(t model.SupportTicket) TicketView {
	return TicketView{
		ID:        t.ID, Subject: t.Subject, Status: string(t.Status), Priority: string(t.Priority),
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func serviceView(s model.Service) ServiceView {
	return ServiceView{
		ID:    s.ID, Name: s.Name, Category: s.Category, Description: s.Description,
		Price: s.BasePrice.Round(2).InexactFloat64(), DurationMinutes: s.DurationMinutes,
	}
}

func slotView(t model.TimeSlot) TimeSlotView {
	return TimeSlotView{Date: t.Date, Time: t.Time, Available: t.Available}
}
