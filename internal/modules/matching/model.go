// README: Matching constants and query errors.
package matching

import "errors"

// SharedRadiusKm bounds both the pickup and the dropoff distance between a
// shared ride and a request that wants to join it.
const SharedRadiusKm = 2.0

var ErrInvalidQuery = errors.New("invalid matching query")
