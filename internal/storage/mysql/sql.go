package mysql

const propertyColumns = `
  p.id, p.landlord_id, p.title, p.description, p.price_per_night, p.status,
  p.category, p.place_type, p.bedrooms, p.bathrooms, p.guests, p.beds,
  p.country, p.state, p.city, p.address, p.postal_code, p.timezone,
  p.images, p.created_at`

const upsertPropertySQL = `
INSERT INTO properties
  (id, landlord_id, title, description, price_per_night, status,
   category, place_type, bedrooms, bathrooms, guests, beds,
   country, state, city, address, postal_code, timezone, images, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  title           = VALUES(title),
  description     = VALUES(description),
  price_per_night = VALUES(price_per_night),
  status          = VALUES(status),
  category        = VALUES(category),
  place_type      = VALUES(place_type),
  bedrooms        = VALUES(bedrooms),
  bathrooms       = VALUES(bathrooms),
  guests          = VALUES(guests),
  beds            = VALUES(beds),
  country         = VALUES(country),
  state           = VALUES(state),
  city            = VALUES(city),
  address         = VALUES(address),
  postal_code     = VALUES(postal_code),
  timezone        = VALUES(timezone),
  images          = VALUES(images),
  updated_at      = CURRENT_TIMESTAMP
`

const getPropertySQL = `SELECT` + propertyColumns + `
FROM properties p
WHERE p.id = ?
`

const getPropertyForUpdateSQL = getPropertySQL + `FOR UPDATE`

const listPublishedIDsSQL = `
SELECT id FROM properties WHERE status = 'published' ORDER BY id
`

const listLandlordPropertiesSQL = `SELECT` + propertyColumns + `
FROM properties p
WHERE p.landlord_id = ?
ORDER BY p.created_at DESC, p.id
`

// -----------------------------------------------------------------------------
// RESERVATIONS
// -----------------------------------------------------------------------------

const reservationColumns = `r.id, r.property_id, r.user_id, r.check_in, r.check_out, r.guests, r.total_price, r.created_at`

// Row lock that serializes booking writers of one property.
const lockPropertySQL = `SELECT id FROM properties WHERE id = ? FOR UPDATE`

const listReservationsSQL = `SELECT ` + reservationColumns + `
FROM reservations r
WHERE r.property_id = ?
ORDER BY r.check_in
`

const insertReservationSQL = `
INSERT INTO reservations
  (id, property_id, user_id, check_in, check_out, guests, total_price, created_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const listUserReservationsSQL = `SELECT ` + reservationColumns + `, p.title, p.timezone, p.images
FROM reservations r
JOIN properties p ON p.id = r.property_id
WHERE r.user_id = ?
ORDER BY r.created_at DESC, r.id DESC
`

const latestCompletedStaySQL = `SELECT ` + reservationColumns + `
FROM reservations r
WHERE r.property_id = ? AND r.user_id = ? AND r.check_out < ?
ORDER BY r.check_out DESC
LIMIT 1
`

// -----------------------------------------------------------------------------
// REVIEWS
// -----------------------------------------------------------------------------

const reviewColumns = `id, property_id, user_id, reservation_id, rating, title, content, is_verified, is_hidden, created_at, updated_at`

const countReviewsSQL = `
SELECT COUNT(*) FROM reviews WHERE property_id = ? AND is_hidden = FALSE
`

const listReviewsSQL = `SELECT ` + reviewColumns + `
FROM reviews
WHERE property_id = ? AND is_hidden = FALSE
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

const getReviewSQL = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

const hasReviewSQL = `
SELECT EXISTS(SELECT 1 FROM reviews WHERE property_id = ? AND user_id = ?)
`

const insertReviewSQL = `
INSERT INTO reviews (` + reviewColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateReviewSQL = `
UPDATE reviews SET rating = ?, title = ?, content = ?, updated_at = ? WHERE id = ?
`

const deleteReviewSQL = `DELETE FROM reviews WHERE id = ?`

const listRatingsSQL = `
SELECT rating FROM reviews WHERE property_id = ? AND is_hidden = FALSE
`

const reviewExistsSQL = `SELECT EXISTS(SELECT 1 FROM reviews WHERE id = ?)`

// -----------------------------------------------------------------------------
// REVIEW TAGS
// -----------------------------------------------------------------------------

const tagColumns = `t.tag_key, t.name_en, t.name_zh, t.name_fr, t.color, t.icon, t.category, t.sort_order`

const listReviewTagsSQL = `SELECT ` + tagColumns + `
FROM review_tags t
WHERE t.is_active = TRUE
ORDER BY t.category, t.sort_order
`

// Inactive keys are skipped by the join so a retired tag cannot be attached.
const insertReviewTagSQL = `
INSERT INTO review_tag_assignments (review_id, tag_key)
SELECT ?, tag_key FROM review_tags WHERE tag_key = ? AND is_active = TRUE
`

const clearReviewTagsSQL = `DELETE FROM review_tag_assignments WHERE review_id = ?`

// %s is the IN placeholder list.
const reviewTagsForSQL = `SELECT a.review_id, ` + tagColumns + `
FROM review_tag_assignments a
JOIN review_tags t ON t.tag_key = a.tag_key
WHERE t.is_active = TRUE AND a.review_id IN (%s)
ORDER BY t.category, t.sort_order
`

const countTagsSQL = `SELECT ` + tagColumns + `, COUNT(*) AS uses
FROM review_tag_assignments a
JOIN reviews r ON r.id = a.review_id
JOIN review_tags t ON t.tag_key = a.tag_key
WHERE r.property_id = ? AND r.is_hidden = FALSE AND t.is_active = TRUE
GROUP BY t.tag_key
ORDER BY uses DESC, t.tag_key
LIMIT ?
`

// -----------------------------------------------------------------------------
// WISHLIST
// -----------------------------------------------------------------------------

const deleteWishlistSQL = `DELETE FROM wishlist WHERE user_id = ? AND property_id = ?`

const insertWishlistSQL = `INSERT INTO wishlist (user_id, property_id) VALUES (?, ?)`

const listWishlistSQL = `SELECT` + propertyColumns + `
FROM wishlist w
JOIN properties p ON p.id = w.property_id
WHERE w.user_id = ? AND p.status = 'published'
ORDER BY w.created_at DESC
`

// -----------------------------------------------------------------------------
// DRAFTS
// -----------------------------------------------------------------------------

const upsertDraftSQL = `
INSERT INTO drafts (id, user_id, status, payload, property_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  status      = VALUES(status),
  payload     = VALUES(payload),
  property_id = VALUES(property_id),
  updated_at  = VALUES(updated_at)
`

const getDraftSQL = `
SELECT id, user_id, status, payload, property_id, created_at, updated_at
FROM drafts
WHERE id = ?
`
