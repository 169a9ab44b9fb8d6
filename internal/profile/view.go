package profile

import "time"

// Profile is the customer portal view-model.  Every section is always
// populated: lists are never nil and object sections carry their defaults
// when the underlying fetch failed.
type Profile struct {
	Customer       CustomerView       `json:"customer"`
	Bookings       []BookingView      `json:"bookings"`
	Addresses      []AddressView      `json:"addresses"`
	Notifications  []NotificationView `json:"notifications"`
	Loyalty        LoyaltyView        `json:"loyalty"`
	Devices        []DeviceView       `json:"devices"`
	Warranties     []WarrantyView     `json:"warranties"`
	Invoices       []InvoiceView      `json:"invoices"`
	Referrals      ReferralView       `json:"referrals"`
	Settings       SettingsView       `json:"settings"`
	Reviews        []ReviewView       `json:"reviews"`
	Favorites      []FavoriteView     `json:"favorites"`
	PaymentMethods []PaymentView      `json:"paymentMethods"`
	SupportTickets []TicketView       `json:"supportTickets"`
	Services       []ServiceView      `json:"services"`
	TimeSlots      []TimeSlotView     `json:"timeSlots"`

	// Partial is true when the load timeout expired before every section
	// arrived.
	Partial bool `json:"partial"`
	// DefaultedSections names the sections that show their default value.
	DefaultedSections []string  `json:"defaultedSections"`
	LoadedAt          time.Time `json:"loadedAt"`
}

type CustomerView struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Linked bool   `json:"linked"` // false when no customer row could be resolved
}

type BookingView struct {
	ID             string   `json:"id"`
	TrackingNumber string   `json:"trackingNumber"`
	Device         string   `json:"device"`
	DeviceType     string   `json:"deviceType"`
	Service        string   `json:"service"`
	Status         string   `json:"status"`
	Priority       string   `json:"priority"`
	ScheduledDate  string   `json:"scheduledDate"`
	ScheduledTime  string   `json:"scheduledTime"`
	DeliveryType   string   `json:"deliveryType"`
	CostEstimate   *float64 `json:"costEstimate"`
	ReadyForPickup bool     `json:"readyForPickup"`
	CreatedAt      string   `json:"createdAt"`
}

type AddressView struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	IsDefault bool   `json:"isDefault"`
}

type NotificationView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

type RewardView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PointsCost  int    `json:"pointsCost"`
}

type PointsEntryView struct {
	Points      int    `json:"points"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type LoyaltyView struct {
	Points           int               `json:"points"`
	Tier             string            `json:"tier"`
	AvailableRewards []RewardView      `json:"availableRewards"`
	PointsHistory    []PointsEntryView `json:"pointsHistory"`
}

type DeviceView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
}

type WarrantyView struct {
	ID         string `json:"id"`
	BookingID  string `json:"bookingId"`
	Device     string `json:"device"`
	Coverage   string `json:"coverage"`
	StartDate  string `json:"startDate"`
	ExpiryDate string `json:"expiryDate"`
	Active     bool   `json:"active"`
}

type InvoiceView struct {
	ID            string  `json:"id"`
	InvoiceNumber string  `json:"invoiceNumber"`
	BookingID     string  `json:"bookingId"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	IssuedDate    string  `json:"issuedDate"`
	DueDate       string  `json:"dueDate"`
}

type ReferralEntryView struct {
	Email        string `json:"email"`
	Status       string `json:"status"`
	RewardPoints int    `json:"rewardPoints"`
	Date         string `json:"date"`
}

type ReferralView struct {
	Code        string              `json:"code"`
	TotalEarned int                 `json:"totalEarned"`
	Referrals   []ReferralEntryView `json:"referrals"`
}

type SettingsView struct {
	EmailNotifications bool   `json:"emailNotifications"`
	SMSNotifications   bool   `json:"smsNotifications"`
	MarketingEmails    bool   `json:"marketingEmails"`
	PreferredContact   string `json:"preferredContact"`
}

type ReviewView struct {
	ID        string `json:"id"`
	BookingID string `json:"bookingId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Date      string `json:"date"`
}

type FavoriteView struct {
	ID          string `json:"id"`
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
}

type PaymentView struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Last4     string `json:"last4"`
	Expiry    string `json:"expiry"`
	IsDefault bool   `json:"isDefault"`
}

type TicketView struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	CreatedAt string `json:"createdAt"`
}

type ServiceView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
}

type TimeSlotView struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}
