package eyes

// inRoundedRect reports whether (px, py) falls inside a rounded
// rectangle centered at (cx, cy) with half-size (hw, hh) and corner
// radius r.
func inRoundedRect(px, py, cx, cy, hw, hh, r int32) bool {
	dx := px - cx
	dy := py - cy
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > hw || dy > hh {
		return false
	}
	if dx <= hw-r || dy <= hh-r {
		return true
	}
	cx2 := dx - (hw - r)
	cy2 := dy - (hh - r)
	return cx2*cx2+cy2*cy2 <= r*r
}

// inEllipse reports whether (px, py) falls inside an axis-aligned
// ellipse with semi-axes (a, b). Integer multiplies only.
func inEllipse(px, py, cx, cy, a, b int32) bool {
	dx := px - cx
	dy := py - cy
	return dx*dx*b*b+dy*dy*a*a <= a*a*b*b
}

// renderBand rasterizes one 30-row band starting at bandY into a.band.
// It reads the interpolated state under the lock, then draws without it.
func (a *Animator) renderBand(bandY int) {
	a.mu.Lock()
	ew := a.current.eyeW >> 8
	eh := a.current.eyeH >> 8
	er := a.current.eyeR >> 8
	lt := a.current.lidTop >> 8
	lb := a.current.lidBot >> 8
	tiltL := a.current.lidTiltL >> 8
	tiltR := a.current.lidTiltR >> 8
	pw := a.current.pupilW >> 8
	ph := a.current.pupilH >> 8
	pdx := a.current.pupilDX >> 8
	pdy := a.current.pupilDY >> 8
	blink := a.current.blinkLid >> 8
	ov := a.current.overlay
	expr := a.expr
	tearOffset := a.tearOffset
	style := a.style
	a.mu.Unlock()

	totalLidTop := lt + blink

	leftCX := int32(Width/2 - eyeSpacing)
	rightCX := int32(Width/2 + eyeSpacing)
	cy := int32(eyeCenterY)

	i := 0
	for row := 0; row < BandHeight; row++ {
		y := int32(bandY + row)

		for x := int32(0); x < Width; x++ {
			color := ColorBlack

			for side := 0; side < 2; side++ {
				ecx := leftCX
				tilt := tiltL
				if side == 1 {
					ecx = rightCX
					tilt = tiltR
				}

				if !inRoundedRect(x, y, ecx, cy, ew, eh, er) {
					continue
				}

				// Top lid clips at cy-eh+lid with a shear across the eye.
				lidTopY := cy - eh + totalLidTop
				if ew > 0 {
					lidTopY += tilt * (x - ecx) / ew
				}
				if y < lidTopY {
					continue
				}

				lidBotY := cy + eh - lb
				if y > lidBotY {
					continue
				}

				if style == StylePupil {
					pcx := ecx + pdx
					pcy := cy + pdy
					if pw > 0 && ph > 0 && inEllipse(x, y, pcx, pcy, pw, ph) {
						color = ColorBlack
					} else {
						color = ColorWhite
					}
				} else {
					color = ColorWhite
				}
			}

			a.band[i] = color
			i++
		}
	}

	if ov == overlayTears {
		// Two falling drops below each eye.
		tearY := cy + eh + 4 + tearOffset
		i = 0
		for row := 0; row < BandHeight; row++ {
			y := int32(bandY + row)
			for x := int32(0); x < Width; x++ {
				for _, tcx := range [2]int32{leftCX, rightCX} {
					if inEllipse(x, y, tcx, tearY, 3, 5) {
						a.band[i] = ColorBlue
					}
					if inEllipse(x, y, tcx+8, tearY+8, 2, 4) {
						a.band[i] = ColorBlue
					}
				}
				i++
			}
		}
	}

	if ov == overlaySweat {
		// Single drop beside the right eye: ellipse body, thin tail above.
		sx := rightCX + ew + 6
		sy := cy - eh + 10
		i = 0
		for row := 0; row < BandHeight; row++ {
			y := int32(bandY + row)
			for x := int32(0); x < Width; x++ {
				if inEllipse(x, y, sx, sy+4, 4, 5) {
					a.band[i] = ColorBlue
				} else if x >= sx-1 && x <= sx+1 && y >= sy-4 && y <= sy {
					a.band[i] = ColorBlue
				}
				i++
			}
		}
	}

	if expr == Dizzy {
		// Cross out each eye with an X.
		xsize := ew
		if xsize > 16 {
			xsize = 16
		}
		i = 0
		for row := 0; row < BandHeight; row++ {
			y := int32(bandY + row)
			for x := int32(0); x < Width; x++ {
				for _, ecx := range [2]int32{leftCX, rightCX} {
					dx := x - ecx
					dy := y - cy
					if dx >= -xsize && dx <= xsize && dy >= -xsize && dy <= xsize {
						d1 := dx - dy
						d2 := dx + dy
						if d1 < 0 {
							d1 = -d1
						}
						if d2 < 0 {
							d2 = -d2
						}
						if d1 <= 2 || d2 <= 2 {
							a.band[i] = ColorWhite
						}
					}
				}
				i++
			}
		}
	}
}
