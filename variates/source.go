// source.go - OpenCL-Quelltext des Variaten-Generators
// Muss Schritt fuer Schritt mit InvCumN in variates.go uebereinstimmen.
package variates

// Source gibt die Kernel-Funktionen mc_uniform und mc_invCumN zurueck.
func Source() string {
	return source
}

const source = `float mc_uniform(const uint x0);
float mc_uniform(const uint x0) { return ((float)x0 + 0.5f) / 4294967296.0f; }
float mc_invCumTail(const float q);
float mc_invCumTail(const float q) {
    const float c1_ = -7.784894002430293e-03f;
    const float c2_ = -3.223964580411365e-01f;
    const float c3_ = -2.400758277161838e+00f;
    const float c4_ = -2.549732539343734e+00f;
    const float c5_ = 4.374664141464968e+00f;
    const float c6_ = 2.938163982698783e+00f;
    const float d1_ = 7.784695709041462e-03f;
    const float d2_ = 3.224671290700398e-01f;
    const float d3_ = 2.445134137142996e+00f;
    const float d4_ = 3.754408661907416e+00f;
    float z = sqrt(-2.0f * log(q));
    return (((((c1_ * z + c2_) * z + c3_) * z + c4_) * z + c5_) * z + c6_) /
        ((((d1_ * z + d2_) * z + d3_) * z + d4_) * z + 1.0f);
}
float mc_invCumN(const uint x0);
float mc_invCumN(const uint x0) {
    const float a1_ = -3.969683028665376e+01f;
    const float a2_ = 2.209460984245205e+02f;
    const float a3_ = -2.759285104469687e+02f;
    const float a4_ = 1.383577518672690e+02f;
    const float a5_ = -3.066479806614716e+01f;
    const float a6_ = 2.506628277459239e+00f;
    const float b1_ = -5.447609879822406e+01f;
    const float b2_ = 1.615858368580409e+02f;
    const float b3_ = -1.556989798598866e+02f;
    const float b4_ = 6.680131188771972e+01f;
    const float b5_ = -1.328068155288572e+01f;
    const float x_low_ = 0.02425f;
    const float x_high_ = 1.0f - x_low_;
    if (x0 == 0U)
        return -FLT_MAX;
    if (x0 == UINT_MAX)
        return FLT_MAX;
    const float x = mc_uniform(x0);
    if (x < x_low_)
        return mc_invCumTail(x);
    if (x_high_ < x)
        return -mc_invCumTail(mc_uniform(UINT_MAX - x0));
    float z = x - 0.5f;
    float r = z * z;
    return (((((a1_ * r + a2_) * r + a3_) * r + a4_) * r + a5_) * r + a6_) * z /
        (((((b1_ * r + b2_) * r + b3_) * r + b4_) * r + b5_) * r + 1.0f);
}
`
