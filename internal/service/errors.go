package service

import (
	"github.com/dukerupert/remindr/internal/domain"
)

// Billing errors
var (
	ErrBillingNotConfigured = domain.NotConfigured("", "Billing is not configured")
	ErrNoActiveSubscription = domain.Errorf(domain.ENOTFOUND, "", "No active subscription")
	ErrUnknownPrice         = domain.Errorf(domain.EINVALID, "", "Unknown price")
)

// Webhook errors
var (
	ErrWebhookNotConfigured    = domain.NotConfigured("", "Webhook endpoint is not configured")
	ErrInvalidWebhookSignature = domain.Errorf(domain.EINVALID, "", "Invalid webhook signature")
)
