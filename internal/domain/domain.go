// Package domain re-exports the per-area model types so repositories
// and services can import a single package as `types`.
package domain

import (
	"github.com/borealisconf/borealis-backend/internal/domain/account"
	"github.com/borealisconf/borealis-backend/internal/domain/analytics"
	"github.com/borealisconf/borealis-backend/internal/domain/cart"
	"github.com/borealisconf/borealis-backend/internal/domain/cfp"
	"github.com/borealisconf/borealis-backend/internal/domain/discounts"
	"github.com/borealisconf/borealis-backend/internal/domain/mail"
	"github.com/borealisconf/borealis-backend/internal/domain/orders"
	"github.com/borealisconf/borealis-backend/internal/domain/program"
	"github.com/borealisconf/borealis-backend/internal/domain/tickets"
)

type (
	Account      = account.Account
	AccountToken = account.AccountToken

	Speaker = program.Speaker
	Session = program.Session

	TicketType = tickets.TicketType

	Cart         = cart.Cart
	CartItem     = cart.CartItem
	CartAttendee = cart.CartAttendee

	Order  = orders.Order
	Ticket = orders.Ticket

	Coupon  = discounts.Coupon
	Voucher = discounts.Voucher

	Submission = cfp.Submission
	Review     = cfp.Review

	EmailOutbox    = mail.EmailOutbox
	AnalyticsEvent = analytics.Event
)

const (
	RoleAttendee = account.RoleAttendee
	RoleSpeaker  = account.RoleSpeaker
	RoleAdmin    = account.RoleAdmin

	SessionFormatTalk      = program.FormatTalk
	SessionFormatWorkshop  = program.FormatWorkshop
	SessionFormatLightning = program.FormatLightning

	TicketKindConference = tickets.KindConference
	TicketKindWorkshop   = tickets.KindWorkshop
	TicketKindAddon      = tickets.KindAddon

	CartOpen      = cart.StatusOpen
	CartLocked    = cart.StatusLocked
	CartCompleted = cart.StatusCompleted
	CartExpired   = cart.StatusExpired

	CartStepReview    = cart.StepReview
	CartStepAttendees = cart.StepAttendees
	CartStepUpsells   = cart.StepUpsells
	CartStepCheckout  = cart.StepCheckout

	OrderPending  = orders.StatusPending
	OrderPaid     = orders.StatusPaid
	OrderRefunded = orders.StatusRefunded
	OrderCanceled = orders.StatusCanceled

	TicketValid    = orders.TicketValid
	TicketCanceled = orders.TicketCanceled
	TicketRefunded = orders.TicketRefunded

	VoucherComp    = discounts.VoucherComp
	VoucherSpeaker = discounts.VoucherSpeaker
	VoucherSponsor = discounts.VoucherSponsor

	CFPDraft       = cfp.StatusDraft
	CFPSubmitted   = cfp.StatusSubmitted
	CFPUnderReview = cfp.StatusUnderReview
	CFPAccepted    = cfp.StatusAccepted
	CFPRejected    = cfp.StatusRejected
	CFPWithdrawn   = cfp.StatusWithdrawn

	MailPending = mail.StatusPending
	MailSending = mail.StatusSending
	MailSent    = mail.StatusSent
	MailFailed  = mail.StatusFailed

	MailTemplateOrderConfirmation = mail.TemplateOrderConfirmation
	MailTemplateOrderRefunded     = mail.TemplateOrderRefunded
	MailTemplateCFPReceived       = mail.TemplateCFPReceived
	MailTemplateCFPAccepted       = mail.TemplateCFPAccepted
	MailTemplateCFPRejected       = mail.TemplateCFPRejected
	MailTemplateAnnouncement      = mail.TemplateAnnouncement
)
