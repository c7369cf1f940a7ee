// Package auth implements password hashing, access token issuance and
// validation, bearer-token request authentication, and account
// registration/login.
package auth
