package geometry

// CalculateAspectFit returns the rectangle, in view coordinates, occupied by an
// image of the given size when it is scaled uniformly to fit entirely inside
// the view and centered on the letterboxed axis.
//
// Zero image or view dimensions are not guarded; callers check first.
func CalculateAspectFit(imageWidth, imageHeight, viewWidth, viewHeight float64) Rect {
	imageRatio := imageWidth / imageHeight
	viewRatio := viewWidth / viewHeight
	if imageRatio < viewRatio {
		// Relatively taller image: fill height, center horizontally.
		scale := viewHeight / imageHeight
		width := scale * imageWidth
		return Rect{X: (viewWidth - width) * 0.5, Y: 0, Width: width, Height: viewHeight}
	}
	scale := viewWidth / imageWidth
	height := scale * imageHeight
	return Rect{X: 0, Y: (viewHeight - height) * 0.5, Width: viewWidth, Height: height}
}

// AspectFit is CalculateAspectFit for Size arguments.
func AspectFit(image, view Size) Rect {
	return CalculateAspectFit(image.Width, image.Height, view.Width, view.Height)
}

// TranslateCenterPointToAspectFit maps a center point and size expressed in
// image space into the space of aspectFit. The returned point is the top-left
// anchor of the translated size, so a view of that size placed there is
// centered on the translated center.
func TranslateCenterPointToAspectFit(imageSize Size, aspectFit Rect, center Point2D, size Size) (leadingTop Point2D, translated Size) {
	scaleX := aspectFit.Width / imageSize.Width
	newWidth := scaleX * size.Width
	leading := (scaleX*center.X + aspectFit.X) - newWidth/2

	scaleY := aspectFit.Height / imageSize.Height
	newHeight := scaleY * size.Height
	top := (scaleY*center.Y + aspectFit.Y) - newHeight/2

	return Point2D{X: leading, Y: top}, Size{Width: newWidth, Height: newHeight}
}

// TranslateRectToAspectFit maps an image-space rectangle into aspect-fit space.
func TranslateRectToAspectFit(imageSize Size, aspectFit Rect, r Rect) Rect {
	origin, size := TranslateCenterPointToAspectFit(imageSize, aspectFit, r.Center(), r.Size())
	return RectFrom(origin, size)
}

// AspectFitTransform returns the transform from image space to view space for
// an image drawn into aspectFit.
func AspectFitTransform(imageSize Size, aspectFit Rect) AffineTransform {
	return Translation(aspectFit.X, aspectFit.Y).
		Compose(Scale(aspectFit.Width/imageSize.Width, aspectFit.Height/imageSize.Height))
}
