// Package service maps the hospital API's business operations to endpoints
// and shapes on top of apiclient.
//
//   - AuthService: login, registration, logout, current user, WhatsApp pairing
//   - PatientService: patient records CRUD
//   - ProfileService: the logged-in user's profile
//
// Services hold no state of their own. The only side effects are on the
// credential store: Login writes it, Logout clears it.
package service
