// Package password provides the memory-hard credential hash shared by
// login passwords and MFA recovery codes: Argon2id in PHC string format
// with deployment-fixed cost parameters and constant-time verification.
package password
