// Package creative defines the ad record model, stage contracts and error kinds
// shared by every pipeline component.
package creative
