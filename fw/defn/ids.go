package defn

// FaceId identifies a face (link to a neighbor) within the forwarder.
type FaceId = uint64

// InvalidFaceId is used when no face applies, e.g. a nexthop entry that has
// not yet been resolved, or the source of a Content Store hit.
const InvalidFaceId FaceId = 0

// DownFaceMetric is the metric value applied to a face considered down;
// the strategy excludes a face with this metric from forwarding entirely.
const DownFaceMetric = 7
