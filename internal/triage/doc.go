// Package triage provides the business boundary for Remedy's symptom triage
// system. It defines the Service (classify, specialist mapping, consent flow,
// booking dispatch), the severity Classifier, and the domain outcome models.
package triage
