package dataset

// BBoxCenter returns the center point of an xyxy bounding box.
func BBoxCenter(bbox []float64) (float64, float64) {
	return (bbox[0] + bbox[2]) / 2, (bbox[1] + bbox[3]) / 2
}

// IoUXYXY computes the intersection over union of two boxes in
// xyxy (corner) format.
func IoUXYXY(a, b []float64) float64 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])

	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// IoUXYWH computes the intersection over union of two boxes in
// COCO xywh format.
func IoUXYWH(a, b []float64) float64 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[0]+a[2], b[0]+b[2])
	y2 := min(a[1]+a[3], b[1]+b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	areaA := a[2] * a[3]
	areaB := b[2] * b[3]

	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
