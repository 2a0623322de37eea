// README: Running-mean rating aggregation.
package rating

import "rideshare/internal/modules/user"

// Apply folds value into the user's running mean. The first rating replaces the
// default score rather than averaging with it.
func Apply(u *user.User, value float64) {
	if u.RatingCount <= 0 {
		u.Rating = value
		u.RatingCount = 1
		return
	}
	n := float64(u.RatingCount)
	u.Rating = (u.Rating*n + value) / (n + 1)
	u.RatingCount++
}
